// Package hyperliquid submits orders to the Hyperliquid perpetuals exchange.
package hyperliquid

import (
	"context"
	"fmt"
	"sync"
	"time"

	"HyperTrade/internal/domain/models"
	"HyperTrade/pkg/logger"
)

// Client implements repository.ExchangeClient against the live API.
type Client struct {
	cfg    Config
	tr     transport
	signer *Signer
	info   *infoClient
	log    *logger.Logger

	mu        sync.Mutex
	leverage  map[string]int
	lastNonce uint64
	now       func() time.Time
}

func NewClient(cfg Config, log *logger.Logger) (*Client, error) {
	cfg.applyDefaults()

	signer, err := NewSigner(cfg.PrivateKey, cfg.mainnet())
	if err != nil {
		return nil, err
	}

	var tr transport
	switch cfg.Transport {
	case TransportREST:
		tr = newRESTTransport(cfg.APIURL, cfg.RequestTimeout)
	case TransportWS:
		tr = newWSTransport(cfg.WSURL, log)
	default:
		return nil, fmt.Errorf("unknown hyperliquid transport %q", cfg.Transport)
	}

	return newClient(cfg, tr, signer, log), nil
}

func newClient(cfg Config, tr transport, signer *Signer, log *logger.Logger) *Client {
	return &Client{
		cfg:      cfg,
		tr:       tr,
		signer:   signer,
		info:     newInfoClient(tr, cfg.MetaTTL, cfg.MidsTTL),
		log:      log.With(logger.String("component", "hyperliquid"), logger.String("transport", tr.Name())),
		leverage: make(map[string]int),
		now:      time.Now,
	}
}

// SubmitOrder places intent as an immediate-or-cancel limit order priced
// through the mid, setting leverage first when it changed.
func (c *Client) SubmitOrder(ctx context.Context, intent models.OrderIntent) (models.ExchangeAck, error) {
	idx, meta, err := c.info.asset(ctx, intent.Coin)
	if err != nil {
		return models.ExchangeAck{}, err
	}

	if err := c.ensureLeverage(ctx, idx, intent.Coin, intent.Leverage); err != nil {
		return models.ExchangeAck{}, err
	}

	size := roundSize(intent.Size, meta.SzDecimals)
	if !size.IsPositive() {
		return models.ExchangeAck{}, &models.RemoteError{
			Kind:    models.RemoteRejected,
			Message: fmt.Sprintf("size %s is below the %s lot size", intent.Size, intent.Coin),
		}
	}

	buy := intent.Side.IsBuy()
	ref, ok, err := c.info.mid(ctx, intent.Coin)
	if err != nil {
		return models.ExchangeAck{}, err
	}
	if !ok {
		ref = intent.Price
	}
	if !ref.IsPositive() {
		return models.ExchangeAck{}, &models.RemoteError{Kind: models.RemoteRejected, Message: "no reference price for " + intent.Coin}
	}
	px := roundPrice(aggressivePrice(ref, c.cfg.SlippageBps, buy), meta.SzDecimals, buy)

	action := orderAction{
		Type: "order",
		Orders: []orderWire{{
			Asset:      idx,
			IsBuy:      buy,
			LimitPx:    px.String(),
			Size:       size.String(),
			ReduceOnly: intent.ReduceOnly,
			OrderType:  orderTypeWire{Limit: limitWire{Tif: "Ioc"}},
			Cloid:      intent.ClientOrderID(),
		}},
		Grouping: "na",
	}

	c.log.Debug("submitting order",
		logger.String("coin", intent.Coin),
		logger.Bool("buy", buy),
		logger.String("size", size.String()),
		logger.String("limit_px", px.String()),
		logger.Bool("reduce_only", intent.ReduceOnly),
		logger.String("cloid", intent.ClientOrderID()),
	)

	resp, err := c.sendAction(ctx, action)
	if err != nil {
		return models.ExchangeAck{}, err
	}
	return parseOrderAck(resp)
}

func (c *Client) ensureLeverage(ctx context.Context, asset int, coin string, leverage int) error {
	c.mu.Lock()
	current := c.leverage[coin]
	c.mu.Unlock()
	if current == leverage {
		return nil
	}

	resp, err := c.sendAction(ctx, updateLeverageAction{
		Type:     "updateLeverage",
		Asset:    asset,
		IsCross:  c.cfg.CrossMargin,
		Leverage: leverage,
	})
	if err != nil {
		return err
	}
	if resp.Status != "ok" {
		return errorResponse(resp)
	}

	c.mu.Lock()
	c.leverage[coin] = leverage
	c.mu.Unlock()
	c.log.Info("leverage updated", logger.String("coin", coin), logger.Int("leverage", leverage))
	return nil
}

func (c *Client) sendAction(ctx context.Context, action any) (exchangeResponse, error) {
	nonce := c.nextNonce()
	sig, err := c.signer.SignAction(action, nonce, c.cfg.VaultAddress)
	if err != nil {
		return exchangeResponse{}, err
	}

	req := exchangeRequest{Action: action, Nonce: nonce, Signature: sig}
	if c.cfg.VaultAddress != "" {
		vault := c.cfg.VaultAddress
		req.VaultAddress = &vault
	}
	return c.tr.Exchange(ctx, req)
}

// nextNonce is the current time in milliseconds, strictly increasing.
func (c *Client) nextNonce() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := uint64(c.now().UnixMilli())
	if n <= c.lastNonce {
		n = c.lastNonce + 1
	}
	c.lastNonce = n
	return n
}

// Ping checks that the info endpoint answers. It bypasses the meta cache.
func (c *Client) Ping(ctx context.Context) error {
	var m metaResponse
	if err := c.tr.Info(ctx, infoRequest{Type: "meta"}, &m); err != nil {
		return fmt.Errorf("hyperliquid ping: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.tr.Close()
}
