package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"HyperTrade/internal/domain/repository"
	"HyperTrade/internal/handler/api"
	internalrepo "HyperTrade/internal/repository"
	"HyperTrade/internal/service/guard"
	"HyperTrade/internal/service/hyperliquid"
	"HyperTrade/internal/service/idempotency"
	svcmetrics "HyperTrade/internal/service/metrics"
	"HyperTrade/internal/service/notify"
	"HyperTrade/internal/service/ratelimit"
	"HyperTrade/internal/service/risk"
	"HyperTrade/internal/service/schema"
	"HyperTrade/internal/usecase"
	"HyperTrade/pkg/cache"
	pkgch "HyperTrade/pkg/clickhouse"
	"HyperTrade/pkg/config"
	"HyperTrade/pkg/http/middleware"
	pkgkafka "HyperTrade/pkg/kafka"
	applogger "HyperTrade/pkg/logger"
	"HyperTrade/pkg/metrics"
	"HyperTrade/pkg/queue"
	"HyperTrade/pkg/server"
)

// AuditSinks groups where audit records go.
type AuditSinks struct {
	Inline  []repository.AuditSink // written on the request path
	Exports []repository.AuditSink // written by queue workers
	Store   repository.AuditStore  // answers admin queries
}

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	svcmetrics.Register(prometheus.DefaultRegisterer)
	return metrics.New()
}

// ProvideCache creates the idempotency backend.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if cfg.Idempotency.Backend != "redis" {
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Idempotency.MaxEntries),
			cache.WithMemoryCleanup(time.Minute),
		), nil
	}

	c, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return c, nil
}

func ProvideIdempotencyStore(c cache.Service, cfg *config.Config) repository.IdempotencyStore {
	return idempotency.NewStore(c, idempotency.Config{
		Retention:   cfg.Idempotency.Retention,
		WaitTimeout: cfg.IdempotencyWait(),
	})
}

// ProvideExchangeClient creates the Hyperliquid client, or the offline mock.
func ProvideExchangeClient(cfg *config.Config, l *applogger.Logger) (repository.ExchangeClient, error) {
	hl := cfg.Hyperliquid
	if hl.Mock {
		l.Warn("hyperliquid mock mode: orders are acknowledged without being sent")
		return hyperliquid.NewMockClient(hl.SubaccountAddr, l), nil
	}

	client, err := hyperliquid.NewClient(hyperliquid.Config{
		Network:        hl.Network,
		APIURL:         hl.APIURL,
		WSURL:          hl.WSURL,
		Transport:      hl.Transport,
		PrivateKey:     hl.APIWalletPriv,
		VaultAddress:   hl.SubaccountAddr,
		SlippageBps:    hl.SlippageBps,
		CrossMargin:    hl.CrossMargin,
		RequestTimeout: hl.RequestTimeout,
		MetaTTL:        hl.MetaTTL,
		MidsTTL:        hl.MidsTTL,
	}, l)
	if err != nil {
		return nil, fmt.Errorf("hyperliquid client: %w", err)
	}
	return client, nil
}

func ProvideGuard(cfg *config.Config) (*guard.Guard, error) {
	return guard.New(guard.Config{
		MaxPayloadBytes:     cfg.Security.MaxPayloadBytes,
		IPAllowlistEnabled:  cfg.Security.IPAllowlistEnabled,
		AllowedIPs:          cfg.Security.TVWebhookIPs,
		TrustForwardedFor:   cfg.Security.TrustForwardedFor,
		TrustedHostsEnabled: cfg.Server.TrustedHostsEnabled,
		TrustedHosts:        cfg.Server.TrustedHosts,
		Secret:              cfg.Security.WebhookSecret,
	})
}

func ProvideBuilder(cfg *config.Config) (*risk.Builder, error) {
	assets := make([]risk.AssetPolicy, 0, len(cfg.Risk.Assets))
	for _, a := range cfg.Risk.Assets {
		assets = append(assets, risk.AssetPolicy{
			Coin:            a.Coin,
			Tickers:         a.Tickers,
			MaxLeverage:     a.MaxLeverage,
			DefaultLeverage: a.DefaultLeverage,
		})
	}
	return risk.NewBuilder(risk.Policy{
		ActiveCoin:   cfg.Hyperliquid.Asset,
		Assets:       assets,
		LeverageMode: risk.LeverageMode(cfg.Risk.LeverageMode),
		AllowStale:   cfg.Risk.AllowStale,
	})
}

func ProvideOrderExecutor(
	client repository.ExchangeClient,
	store repository.IdempotencyStore,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.OrderExecutor {
	return usecase.NewOrderExecutor(client, store, m, l, usecase.ExecutorConfig{
		Timeout:     cfg.Executor.Timeout,
		MaxAttempts: int(cfg.Executor.MaxAttempts),
		BackoffMin:  cfg.Executor.BackoffMin,
		BackoffMax:  cfg.Executor.BackoffMax,
	})
}

func ProvideTelegram(cfg *config.Config) *notify.Telegram {
	t := cfg.Notifications.Telegram
	return notify.NewTelegram(t.APIURL, cfg.Notifications.Timeout, notify.TelegramSettings{
		Enabled:  t.Enabled,
		BotToken: t.BotToken,
		ChatID:   t.ChatID,
	})
}

// ProvideClickHouseClient creates a ClickHouse client and the audit table.
// It returns nil when the ClickHouse sink is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	ch := cfg.Audit.ClickHouse
	if !ch.Enabled {
		return nil, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(ch.Host),
		pkgch.WithPort(ch.Port),
		pkgch.WithDatabase(ch.Database),
		pkgch.WithCredentials(ch.User, ch.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(ch.UseHTTP),
		pkgch.WithAsyncInsert(ch.AsyncInsert, false),
		pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout, ch.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := append([]string{"CREATE DATABASE IF NOT EXISTS " + ch.Database},
		internalrepo.AuditSchema(ch.Database+"."+ch.Table)...)
	if err := client.InitSchema(ctx, stmts); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when the Kafka sink
// is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	k := cfg.Audit.Kafka
	if !k.Enabled {
		return nil, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(k.Brokers),
		pkgkafka.WithTopic(k.Topic),
		pkgkafka.WithCompression(k.Compression),
		pkgkafka.WithRequiredAcks(k.RequiredAcks),
		pkgkafka.WithMaxAttempts(k.MaxAttempts),
		pkgkafka.WithTimeouts(k.WriteTimeout, k.WriteTimeout),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideAuditSinks builds the journal and in-memory sinks plus the optional
// ClickHouse and Kafka exports. Admin queries use ClickHouse when enabled.
func ProvideAuditSinks(
	cfg *config.Config,
	l *applogger.Logger,
	ch *pkgch.Client,
	producer *pkgkafka.Producer,
) (*AuditSinks, error) {
	journal, err := applogger.New(&applogger.Config{Level: "info", Format: "json", Output: cfg.State.Path})
	if err != nil {
		return nil, fmt.Errorf("audit journal: %w", err)
	}

	memory := internalrepo.NewMemoryAuditStore(cfg.Audit.MemorySize)
	sinks := &AuditSinks{
		Inline: []repository.AuditSink{internalrepo.NewJournalSink(journal), memory},
		Store:  memory,
	}

	if ch != nil {
		store := internalrepo.NewClickHouseAuditStore(ch, cfg.Audit.ClickHouse.Database+"."+cfg.Audit.ClickHouse.Table)
		store.SetLogger(l)
		sinks.Exports = append(sinks.Exports, store)
		sinks.Store = store
	}
	if producer != nil {
		sinks.Exports = append(sinks.Exports, internalrepo.NewKafkaAuditSink(producer))
	}
	return sinks, nil
}

func ProvideQueue(cfg *config.Config, l *applogger.Logger) *queue.MemoryQueue {
	n := cfg.Notifications
	return queue.NewMemoryQueue(l, &queue.QueueConfig{
		Workers:    n.Workers,
		QueueSize:  n.QueueSize,
		RetryLimit: n.RetryLimit,
		RetryDelay: n.RetryDelay,
		JobTimeout: n.Timeout,
	})
}

// ProvideOutcomeNotifier creates the notifier and registers its jobs on q.
func ProvideOutcomeNotifier(
	sinks *AuditSinks,
	telegram *notify.Telegram,
	q *queue.MemoryQueue,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.OutcomeNotifier {
	n := usecase.NewOutcomeNotifier(sinks.Inline, sinks.Exports, telegram, q, m, l)
	q.RegisterJobs(n.Jobs())
	return n
}

func ProvideSignalRelay(
	g *guard.Guard,
	b *risk.Builder,
	executor *usecase.OrderExecutor,
	notifier *usecase.OutcomeNotifier,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.SignalRelay {
	return usecase.NewSignalRelay(g, schema.New(), b, executor, notifier, m, l, cfg.Executor.SerializePerAsset)
}

// ProvideLimiter returns nil when rate limiting is disabled.
func ProvideLimiter(cfg *config.Config) middleware.Limiter {
	rl := cfg.Security.RateLimit
	if !rl.Enabled {
		return nil
	}
	return ratelimit.New(rl.Capacity, rl.RefillPerSec)
}

func ProvideRouter(
	relay *usecase.SignalRelay,
	g *guard.Guard,
	limiter middleware.Limiter,
	client repository.ExchangeClient,
	sinks *AuditSinks,
	telegram *notify.Telegram,
	l *applogger.Logger,
) *api.Router {
	return api.NewRouter(
		api.NewWebhookHandler(relay, g, limiter, l),
		api.NewHealthHandler(client, l),
		api.NewAdminHandler(g, sinks.Store, telegram, l),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	router *api.Router,
	q *queue.MemoryQueue,
	client repository.ExchangeClient,
	c cache.Service,
	ch *pkgch.Client,
	producer *pkgkafka.Producer,
) *server.App {
	app := server.New(cfg, l, router, q)
	app.AddCloser("exchange", client.Close)
	app.AddCloser("idempotency cache", c.Close)
	if producer != nil {
		app.AddCloser("kafka producer", producer.Close)
	}
	if ch != nil {
		app.AddCloser("clickhouse", ch.Close)
	}
	return app
}
