package hyperliquid

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HyperTrade/internal/domain/models"
	"HyperTrade/pkg/logger"
)

const testVault = "0x2222222222222222222222222222222222222222"

type fakeExchange struct {
	mu        sync.Mutex
	actions   []map[string]any
	bodies    []map[string]any
	orderResp string
	status    int
}

func (f *fakeExchange) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		switch r.URL.Path {
		case "/info":
			switch body["type"] {
			case "meta":
				_, _ = w.Write([]byte(`{"universe":[{"name":"BTC","szDecimals":5,"maxLeverage":40},{"name":"SOL","szDecimals":2,"maxLeverage":20}]}`))
			case "allMids":
				_, _ = w.Write([]byte(`{"BTC":"97000.5","SOL":"143.25"}`))
			}
		case "/exchange":
			f.mu.Lock()
			action := body["action"].(map[string]any)
			f.actions = append(f.actions, action)
			f.bodies = append(f.bodies, body)
			status, resp := f.status, f.orderResp
			f.mu.Unlock()

			if status != 0 {
				w.WriteHeader(status)
				_, _ = w.Write([]byte("upstream"))
				return
			}
			if action["type"] == "updateLeverage" {
				_, _ = w.Write([]byte(`{"status":"ok","response":{"type":"default"}}`))
				return
			}
			_, _ = w.Write([]byte(resp))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newTestClient(t *testing.T, f *fakeExchange) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		Network:      "testnet",
		APIURL:       srv.URL,
		PrivateKey:   testKey,
		VaultAddress: testVault,
		SlippageBps:  50,
		CrossMargin:  true,
	}, logger.Nop())
	require.NoError(t, err)
	return c
}

func intent() models.OrderIntent {
	return models.OrderIntent{
		Coin:           "SOL",
		Side:           models.SideBuy,
		Size:           decimal.RequireFromString("1.5"),
		Price:          decimal.RequireFromString("143.25"),
		Leverage:       3,
		IdempotencyKey: "6f1c0e7d2b9a4c3e8f7a6b5c4d3e2f1a0b9c8d7e6f5a4b3c2d1e0f9a8b7c6d5e",
	}
}

func TestSubmitOrderFilled(t *testing.T) {
	f := &fakeExchange{orderResp: `{"status":"ok","response":{"type":"order","data":{"statuses":[{"filled":{"totalSz":"1.5","avgPx":"143.3","oid":77738308}}]}}}`}
	c := newTestClient(t, f)

	ack, err := c.SubmitOrder(context.Background(), intent())
	require.NoError(t, err)
	assert.Equal(t, "77738308", ack.OrderID)
	assert.True(t, ack.FilledSize.Valid)
	assert.Equal(t, "1.5", ack.FilledSize.Decimal.String())
	assert.Equal(t, "143.3", ack.FillPrice.Decimal.String())

	require.Len(t, f.actions, 2)
	lev := f.actions[0]
	assert.Equal(t, "updateLeverage", lev["type"])
	assert.EqualValues(t, 1, lev["asset"])
	assert.EqualValues(t, 3, lev["leverage"])
	assert.Equal(t, true, lev["isCross"])

	order := f.actions[1]
	assert.Equal(t, "order", order["type"])
	assert.Equal(t, "na", order["grouping"])
	wire := order["orders"].([]any)[0].(map[string]any)
	assert.EqualValues(t, 1, wire["a"])
	assert.Equal(t, true, wire["b"])
	assert.Equal(t, "143.97", wire["p"])
	assert.Equal(t, "1.5", wire["s"])
	assert.Equal(t, false, wire["r"])
	assert.Equal(t, map[string]any{"limit": map[string]any{"tif": "Ioc"}}, wire["t"])
	assert.Equal(t, "0x6f1c0e7d2b9a4c3e8f7a6b5c4d3e2f1a", wire["c"])

	body := f.bodies[1]
	assert.Equal(t, testVault, body["vaultAddress"])
	sig := body["signature"].(map[string]any)
	assert.Contains(t, []float64{27, 28}, sig["v"])
	assert.Greater(t, body["nonce"].(float64), f.bodies[0]["nonce"].(float64))
}

func TestSubmitOrderSkipsUnchangedLeverage(t *testing.T) {
	f := &fakeExchange{orderResp: `{"status":"ok","response":{"type":"order","data":{"statuses":[{"resting":{"oid":12}}]}}}`}
	c := newTestClient(t, f)

	for i := 0; i < 2; i++ {
		ack, err := c.SubmitOrder(context.Background(), intent())
		require.NoError(t, err)
		assert.Equal(t, "12", ack.OrderID)
		assert.False(t, ack.FilledSize.Valid)
	}
	assert.Len(t, f.actions, 3)
}

func TestSubmitOrderSellRoundsDown(t *testing.T) {
	f := &fakeExchange{orderResp: `{"status":"ok","response":{"type":"order","data":{"statuses":[{"resting":{"oid":1}}]}}}`}
	c := newTestClient(t, f)

	in := intent()
	in.Side = models.SideSell
	in.ReduceOnly = true
	_, err := c.SubmitOrder(context.Background(), in)
	require.NoError(t, err)

	wire := f.actions[1]["orders"].([]any)[0].(map[string]any)
	assert.Equal(t, "142.53", wire["p"])
	assert.Equal(t, true, wire["r"])
}

func TestSubmitOrderErrors(t *testing.T) {
	tests := []struct {
		name string
		resp string
		code int
		want models.RemoteKind
	}{
		{
			name: "status error",
			resp: `{"status":"ok","response":{"type":"order","data":{"statuses":[{"error":"Insufficient margin to place order."}]}}}`,
			want: models.RemoteRejected,
		},
		{
			name: "err response",
			resp: `{"status":"err","response":"Order has invalid size."}`,
			want: models.RemoteRejected,
		},
		{
			name: "rate limited",
			resp: `{"status":"err","response":"Rate limited"}`,
			want: models.RemoteTransient,
		},
		{
			name: "bad gateway",
			code: http.StatusBadGateway,
			want: models.RemoteTransient,
		},
		{
			name: "unexpected status",
			resp: `{"status":"ok","response":{"type":"order","data":{"statuses":[{"waitingForTrigger":{}}]}}}`,
			want: models.RemoteUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeExchange{orderResp: tt.resp}
			c := newTestClient(t, f)
			c.leverage["SOL"] = 3
			f.status = tt.code

			_, err := c.SubmitOrder(context.Background(), intent())
			var re *models.RemoteError
			require.True(t, errors.As(err, &re), "got %v", err)
			assert.Equal(t, tt.want, re.Kind)
		})
	}
}

func TestSubmitOrderUnknownAsset(t *testing.T) {
	c := newTestClient(t, &fakeExchange{})
	in := intent()
	in.Coin = "DOGE"

	_, err := c.SubmitOrder(context.Background(), in)
	var re *models.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, models.RemoteRejected, re.Kind)
}

func TestSubmitOrderBelowLot(t *testing.T) {
	c := newTestClient(t, &fakeExchange{})
	c.leverage["SOL"] = 3
	in := intent()
	in.Size = decimal.RequireFromString("0.001")

	_, err := c.SubmitOrder(context.Background(), in)
	var re *models.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, models.RemoteRejected, re.Kind)
}

func TestMockClient(t *testing.T) {
	m := NewMockClient(testVault, logger.Nop())
	ack, err := m.SubmitOrder(context.Background(), intent())
	require.NoError(t, err)
	assert.Contains(t, ack.OrderID, "mock-")
	assert.NoError(t, m.Close())
}

func TestPing(t *testing.T) {
	c := newTestClient(t, &fakeExchange{})
	assert.NoError(t, c.Ping(context.Background()))

	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)
	down, err := NewClient(Config{Network: "testnet", APIURL: srv.URL, PrivateKey: testKey}, logger.Nop())
	require.NoError(t, err)
	assert.Error(t, down.Ping(context.Background()))
}
