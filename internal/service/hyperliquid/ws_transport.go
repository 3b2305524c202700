package hyperliquid

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"HyperTrade/internal/domain/models"
	"HyperTrade/internal/service/metrics"
	"HyperTrade/pkg/logger"
)

const wsWriteWait = 10 * time.Second

type wsPost struct {
	Method  string     `json:"method"`
	ID      uint64     `json:"id"`
	Request *wsRequest `json:"request,omitempty"`
}

type wsRequest struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type wsMessage struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type wsPostData struct {
	ID       uint64 `json:"id"`
	Response struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	} `json:"response"`
}

type wsResult struct {
	typ     string
	payload json.RawMessage
	err     error
}

// wsTransport multiplexes post requests over one WebSocket connection. The
// connection is dialed lazily and redialed after a read failure.
type wsTransport struct {
	url          string
	log          *logger.Logger
	pingInterval time.Duration

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[uint64]chan wsResult
	nextID  uint64
	stop    chan struct{}

	writeMu sync.Mutex
}

func newWSTransport(url string, log *logger.Logger) *wsTransport {
	return &wsTransport{
		url:          url,
		log:          log,
		pingInterval: 50 * time.Second,
		pending:      make(map[uint64]chan wsResult),
	}
}

func (t *wsTransport) Name() string { return TransportWS }

func (t *wsTransport) Info(ctx context.Context, req any, dest any) error {
	payload, err := t.post(ctx, "info", "/info", req)
	if err != nil {
		return err
	}
	var body struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return &models.RemoteError{Kind: models.RemoteUnknown, Message: "malformed info payload", Err: err}
	}
	if err := json.Unmarshal(body.Data, dest); err != nil {
		return &models.RemoteError{Kind: models.RemoteUnknown, Message: "malformed info data", Err: err}
	}
	return nil
}

func (t *wsTransport) Exchange(ctx context.Context, req exchangeRequest) (exchangeResponse, error) {
	var resp exchangeResponse
	payload, err := t.post(ctx, "action", "/exchange", req)
	if err != nil {
		return resp, err
	}
	if err := json.Unmarshal(payload, &resp); err != nil {
		return resp, &models.RemoteError{Kind: models.RemoteUnknown, Message: "malformed action payload", Err: err}
	}
	return resp, nil
}

func (t *wsTransport) post(ctx context.Context, typ, endpoint string, payload any) (json.RawMessage, error) {
	start := time.Now()
	defer metrics.ObserveRequest(endpoint, TransportWS, start)

	conn, err := t.connect(ctx)
	if err != nil {
		metrics.ObserveError(endpoint, string(models.RemoteTransient))
		return nil, &models.RemoteError{Kind: models.RemoteTransient, Message: "websocket connect", Err: err}
	}

	id, ch := t.register()
	defer t.unregister(id)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(wsWriteWait)
	}
	err = t.write(conn, wsPost{Method: "post", ID: id, Request: &wsRequest{Type: typ, Payload: payload}}, deadline)
	if err != nil {
		metrics.ObserveError(endpoint, string(models.RemoteTransient))
		t.drop(conn, err)
		return nil, &models.RemoteError{Kind: models.RemoteTransient, Message: "websocket write", Err: err}
	}

	select {
	case <-ctx.Done():
		metrics.ObserveError(endpoint, string(models.RemoteTransient))
		return nil, &models.RemoteError{Kind: models.RemoteTransient, Message: "websocket post", Err: ctx.Err()}
	case res := <-ch:
		if res.err != nil {
			metrics.ObserveError(endpoint, kindLabel(res.err))
			return nil, res.err
		}
		if res.typ == "error" {
			metrics.ObserveError(endpoint, string(models.RemoteRejected))
			return nil, errorResponse(exchangeResponse{Status: "err", Response: res.payload})
		}
		return res.payload, nil
	}
}

func (t *wsTransport) connect(ctx context.Context) (*websocket.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return t.conn, nil
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return nil, fmt.Errorf("hyperliquid ws connect: %w", err)
	}
	t.conn = conn
	t.stop = make(chan struct{})
	t.log.Info("hyperliquid websocket connected", logger.String("url", t.url))

	go t.readLoop(conn)
	go t.pingLoop(conn, t.stop)
	return conn, nil
}

func (t *wsTransport) register() (uint64, chan wsResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	ch := make(chan wsResult, 1)
	t.pending[t.nextID] = ch
	return t.nextID, ch
}

func (t *wsTransport) unregister(id uint64) {
	t.mu.Lock()
	delete(t.pending, id)
	t.mu.Unlock()
}

func (t *wsTransport) readLoop(conn *websocket.Conn) {
	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			t.drop(conn, err)
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(b, &msg); err != nil || msg.Channel != "post" {
			// pong and subscription frames
			continue
		}
		var data wsPostData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			continue
		}

		t.mu.Lock()
		ch, ok := t.pending[data.ID]
		t.mu.Unlock()
		if ok {
			deliver(ch, wsResult{typ: data.Response.Type, payload: data.Response.Payload})
		}
	}
}

func (t *wsTransport) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(t.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := t.write(conn, wsPost{Method: "ping"}, time.Now().Add(wsWriteWait)); err != nil {
				t.drop(conn, err)
				return
			}
		}
	}
}

// write sends v with its own deadline and clears it afterwards, so one
// request's deadline never applies to later frames on the shared connection.
func (t *wsTransport) write(conn *websocket.Conn, v any, deadline time.Time) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	_ = conn.SetWriteDeadline(deadline)
	err := conn.WriteJSON(v)
	_ = conn.SetWriteDeadline(time.Time{})
	return err
}

// drop discards conn and fails every request waiting on it.
func (t *wsTransport) drop(conn *websocket.Conn, cause error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != conn {
		return
	}
	t.log.Warn("hyperliquid websocket dropped", logger.Error(cause))
	_ = conn.Close()
	close(t.stop)
	t.conn = nil

	for id, ch := range t.pending {
		deliver(ch, wsResult{err: &models.RemoteError{Kind: models.RemoteTransient, Message: "websocket closed", Err: cause}})
		delete(t.pending, id)
	}
}

// deliver never blocks; a waiter only reads the first result.
func deliver(ch chan wsResult, res wsResult) {
	select {
	case ch <- res:
	default:
	}
}

func (t *wsTransport) Close() error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return nil
	}
	t.drop(conn, websocket.ErrCloseSent)
	return nil
}
