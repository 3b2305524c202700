//go:build wireinject
// +build wireinject

package di

import (
	"HyperTrade/pkg/config"
	"HyperTrade/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideCache,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideExchangeClient,

		// Repositories and services
		ProvideIdempotencyStore,
		ProvideAuditSinks,
		ProvideTelegram,
		ProvideQueue,
		ProvideGuard,
		ProvideBuilder,
		ProvideLimiter,

		// Use cases
		ProvideOrderExecutor,
		ProvideOutcomeNotifier,
		ProvideSignalRelay,

		// HTTP
		ProvideRouter,
		ProvideApp,
	)
	return &server.App{}, nil
}
