// Command notification-sim runs the notification dispatcher simulator. Each
// dispatch is acknowledged after a configurable delay, adjustable at runtime
// via POST /config.
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
	Addr  string        `default:"0.0.0.0:3002" usage:"listen address"`
	Delay time.Duration `default:"0s" usage:"initial dispatch delay"`
}

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		var cfg config
		loader := aconfig.LoaderFor(&cfg, aconfig.Config{EnvPrefix: "NOTIFICATION"})
		if err := loader.Load(); err != nil {
			return errors.Wrap(err, "load config")
		}

		dispatcher := sim.NewNotification(sim.NewNotificationConfig(cfg.Delay))

		server := &http.Server{
			ReadHeaderTimeout: time.Second,
			Addr:              cfg.Addr,
			Handler: httpmiddleware.Wrap(dispatcher.Routes(),
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

		lg.Info("Notification simulator listening",
			zap.String("addr", cfg.Addr),
			zap.Duration("delay", cfg.Delay))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
}
