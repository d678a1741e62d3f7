// Package app wires the order orchestration service together and runs it.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/order-orchestrator/internal/bootstrap"
	"github.com/xenking/order-orchestrator/internal/domain/order"
	"github.com/xenking/order-orchestrator/internal/handler"
	"github.com/xenking/order-orchestrator/internal/notification"
	"github.com/xenking/order-orchestrator/internal/payment"
	"github.com/xenking/order-orchestrator/internal/storage/postgres"
	"github.com/xenking/order-orchestrator/pkg/health"
	"github.com/xenking/order-orchestrator/pkg/httpmiddleware"
	"github.com/xenking/order-orchestrator/pkg/metrics"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
//
// The server starts serving before the store connection is established: the
// bootstrap loop runs alongside it, and requests that arrive early fail with
// a persistence error while liveness stays healthy.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	// Store bootstrap: probe, then idempotent schema setup, retried on a
	// fixed interval until ready.
	boot := bootstrap.New(bootstrap.Config{
		Probe: pool.Ping,
		Setup: func(ctx context.Context) error {
			return postgres.ApplySchema(ctx, pool)
		},
		Interval:    cfg.Bootstrap.Interval,
		MaxAttempts: cfg.Bootstrap.MaxAttempts,
	})

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("store", 5*time.Second, func(ctx context.Context) error {
		if !boot.Ready() {
			return errors.New("store connection not established")
		}
		return pool.Ping(ctx)
	})
	healthSvc.SetReady(true)

	counters, err := metrics.New(m.MeterProvider().Meter("order-orchestrator"))
	if err != nil {
		return errors.Wrap(err, "create counters")
	}

	orderService := order.NewService(
		order.ServiceConfig{
			PaymentTimeout:      cfg.Payment.Timeout,
			NotificationTimeout: cfg.Notification.Timeout,
			TracerProvider:      m.TracerProvider(),
		},
		postgres.NewOrderRepository(pool),
		payment.NewClient(cfg.Payment.URL, cfg.Payment.Timeout),
		notification.NewClient(cfg.Notification.URL, cfg.Notification.Timeout),
		counters,
	)

	h := handler.New(orderService, counters, healthSvc)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(
			otelhttp.NewHandler(h.Routes(), "order-api",
				otelhttp.WithTracerProvider(m.TracerProvider()),
				otelhttp.WithMeterProvider(m.MeterProvider()),
			),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins: cfg.CORS.Origins,
				AllowHeaders: []string{"Content-Type"},
				MaxAge:       86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := boot.Run(gctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return errors.Wrap(err, "bootstrap")
		}
		return nil
	})

	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})

	// Graceful shutdown: drop readiness, drain, then stop the server.
	g.Go(func() error {
		<-gctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		return nil
	})

	return g.Wait()
}
