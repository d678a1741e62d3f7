package sim

import (
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// NotificationConfig holds the simulator's artificial dispatch delay.
type NotificationConfig struct {
	// delay holds nanoseconds.
	delay atomic.Int64
}

// NewNotificationConfig creates a config with the given initial delay.
func NewNotificationConfig(delay time.Duration) *NotificationConfig {
	c := &NotificationConfig{}
	c.SetDelay(delay)
	return c
}

// Delay returns the current dispatch delay.
func (c *NotificationConfig) Delay() time.Duration {
	return time.Duration(c.delay.Load())
}

// SetDelay replaces the dispatch delay. Negative values are treated as zero.
func (c *NotificationConfig) SetDelay(d time.Duration) {
	if d < 0 {
		d = 0
	}
	c.delay.Store(int64(d))
}

// Notification simulates the notification dispatcher: each dispatch is
// acknowledged after the configured delay.
type Notification struct {
	cfg *NotificationConfig
}

// NewNotification creates the notification simulator.
func NewNotification(cfg *NotificationConfig) *Notification {
	return &Notification{cfg: cfg}
}

// Routes registers the simulator endpoints.
func (n *Notification) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /notify", n.notify)
	mux.HandleFunc("POST /config", n.configure)
	mux.HandleFunc("GET /health", liveEndpoint)
	return mux
}

// notify acknowledges a dispatch after the configured delay. A client that
// gives up early sees its own deadline error; the simulator itself never
// fails a dispatch.
func (n *Notification) notify(w http.ResponseWriter, r *http.Request) {
	traceID := traceIDFrom(r)
	orderID := readOrderID(r.Body)

	if d := n.cfg.Delay(); d > 0 {
		select {
		case <-r.Context().Done():
			return
		case <-time.After(d):
		}
	}

	zctx.From(r.Context()).Info("notification sent",
		zap.String("traceId", traceID),
		zap.String("orderId", orderID),
	)
	writeObj(w, http.StatusOK, func(e *jx.Encoder) {
		e.Field("status", func(e *jx.Encoder) { e.Str("notification_sent") })
	})
}

// configure replaces the delay via {"delayMs": n}.
func (n *Notification) configure(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<12))
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "delayMs" {
			return d.Skip()
		}
		v, err := d.Int64()
		if err != nil {
			return err
		}
		n.cfg.SetDelay(time.Duration(v) * time.Millisecond)
		return nil
	}); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	writeObj(w, http.StatusOK, func(e *jx.Encoder) {
		e.Field("delayMs", func(e *jx.Encoder) {
			e.Int64(n.cfg.Delay().Milliseconds())
		})
	})
}

// readOrderID best-effort extracts {"orderId": s} for logging.
func readOrderID(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 1<<12))
	if err != nil {
		return ""
	}
	var orderID string
	d := jx.DecodeBytes(data)
	_ = d.Obj(func(d *jx.Decoder, key string) error {
		if key != "orderId" {
			return d.Skip()
		}
		v, err := d.Str()
		if err != nil {
			return err
		}
		orderID = v
		return nil
	})
	return orderID
}
