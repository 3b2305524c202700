package hyperliquid

import (
	"context"
	"fmt"
	"time"

	"HyperTrade/internal/domain/models"
	"HyperTrade/pkg/logger"
)

// MockClient acknowledges every order without touching the network.
type MockClient struct {
	log   *logger.Logger
	vault string
}

func NewMockClient(vault string, log *logger.Logger) *MockClient {
	return &MockClient{log: log, vault: vault}
}

func (m *MockClient) SubmitOrder(_ context.Context, intent models.OrderIntent) (models.ExchangeAck, error) {
	oid := fmt.Sprintf("mock-%d", time.Now().UnixMilli())
	m.log.Info("[MOCK] place_order",
		logger.String("order_id", oid),
		logger.String("coin", intent.Coin),
		logger.String("side", string(intent.Side)),
		logger.String("size", intent.Size.String()),
		logger.String("price", intent.Price.String()),
		logger.Bool("reduce_only", intent.ReduceOnly),
		logger.Int("leverage", intent.Leverage),
		logger.String("vault", m.vault),
		logger.String("cloid", intent.ClientOrderID()),
	)
	return models.ExchangeAck{OrderID: oid}, nil
}

func (m *MockClient) Ping(context.Context) error { return nil }

func (m *MockClient) Close() error { return nil }
