package testutil

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"HyperTrade/internal/domain/models"
)

// MockExchange implements repository.ExchangeClient.
type MockExchange struct {
	mock.Mock
}

func (m *MockExchange) SubmitOrder(ctx context.Context, intent models.OrderIntent) (models.ExchangeAck, error) {
	args := m.Called(ctx, intent)
	return args.Get(0).(models.ExchangeAck), args.Error(1)
}

func (m *MockExchange) Ping(context.Context) error {
	return nil
}

func (m *MockExchange) Close() error {
	return nil
}

// RecordingChannel implements repository.NotificationChannel and keeps every
// message it is asked to send.
type RecordingChannel struct {
	mu       sync.Mutex
	messages []string
	Disabled bool
}

func (c *RecordingChannel) Enabled() bool { return !c.Disabled }

func (c *RecordingChannel) Send(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, text)
	return nil
}

func (c *RecordingChannel) Messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.messages...)
}
