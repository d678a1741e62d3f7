// Command payment-sim runs the payment processor simulator. It declares
// payment failures at a configurable rate, adjustable at runtime via
// POST /config.
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/order-orchestrator/internal/sim"
	"github.com/xenking/order-orchestrator/pkg/httpmiddleware"
)

type config struct {
	Addr        string  `default:"0.0.0.0:3001" usage:"listen address"`
	FailureRate float64 `default:"0.2" usage:"initial payment failure rate [0,1]" flag:"failure-rate"`
}

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		var cfg config
		loader := aconfig.LoaderFor(&cfg, aconfig.Config{EnvPrefix: "PAYMENT"})
		if err := loader.Load(); err != nil {
			return errors.Wrap(err, "load config")
		}

		payment := sim.NewPayment(sim.NewPaymentConfig(cfg.FailureRate))

		server := &http.Server{
			ReadHeaderTimeout: time.Second,
			Addr:              cfg.Addr,
			Handler: httpmiddleware.Wrap(payment.Routes(),
				httpmiddleware.Recovery(),
				httpmiddleware.InjectLogger(zctx.From(ctx)),
			),
		}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()

		lg.Info("Payment simulator listening",
			zap.String("addr", cfg.Addr),
			zap.Float64("failureRate", cfg.FailureRate))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
}
