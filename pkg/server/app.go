package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"HyperTrade/pkg/config"
	xhttp "HyperTrade/pkg/http"
	applogger "HyperTrade/pkg/logger"
)

// Worker is a background component started before the HTTP server and
// drained after it stops.
type Worker interface {
	Start() error
	Stop(ctx context.Context) error
}

type closer struct {
	name string
	fn   func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	logger      *applogger.Logger
	httpHandler xhttp.Handler
	httpServer  *xhttp.Server
	worker      Worker
	closers     []closer
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, h xhttp.Handler, worker Worker) *App {
	return &App{
		cfg:         cfg,
		logger:      l,
		httpHandler: h,
		worker:      worker,
	}
}

// AddCloser registers fn to run on shutdown, after the server and the
// worker have stopped. Closers run in reverse registration order.
func (a *App) AddCloser(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Server returns the HTTP server, building it on first use.
func (a *App) Server() *xhttp.Server {
	if a.httpServer == nil {
		a.httpServer = xhttp.NewServer(a.httpHandler,
			xhttp.WithHost(a.cfg.Server.Host),
			xhttp.WithPort(a.cfg.Server.Port),
			xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
			xhttp.WithMetrics(a.cfg.Metrics.Enabled, a.cfg.Metrics.Path),
			xhttp.WithLogger(a.logger),
		)
	}
	return a.httpServer
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	if a.worker != nil {
		if err := a.worker.Start(); err != nil {
			a.logger.Error("worker start error", applogger.Error(err))
			return err
		}
	}

	if err := a.Server().Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("hypertrade started",
		applogger.String("env", a.cfg.Environment),
		applogger.String("network", a.cfg.Hyperliquid.Network),
		applogger.String("asset", a.cfg.Hyperliquid.Asset),
		applogger.Bool("mock", a.cfg.Hyperliquid.Mock),
		applogger.Bool("ip_allowlist", a.cfg.Security.IPAllowlistEnabled),
		applogger.Bool("secret", a.cfg.Security.WebhookSecret != ""),
	)

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(context.Background())
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop accepting webhooks first so in-flight requests finish their orders
	if err := a.Server().Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	// Drain queued notifications and audit exports
	if a.worker != nil {
		if err := a.worker.Stop(shutdownCtx); err != nil {
			a.logger.Warn("worker stop error", applogger.Error(err))
		}
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.logger.Warn("close error", applogger.String("resource", c.name), applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
