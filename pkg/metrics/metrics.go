// Package metrics provides the order outcome counters and their text
// exposition endpoint.
//
// Counters are an injected registry rather than package globals, so tests and
// parallel service instances never share state. Each counter is backed by an
// atomic integer for the scrape endpoint and optionally mirrored to an
// OpenTelemetry instrument.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Counter is a process-wide monotonic counter safe for concurrent increment.
type Counter struct {
	name string
	v    atomic.Int64
	otel metric.Int64Counter
}

// Name returns the exposition name of the counter.
func (c *Counter) Name() string {
	return c.name
}

// Inc adds one to the counter. The context is only used for the mirrored
// OpenTelemetry instrument; the increment itself never blocks.
func (c *Counter) Inc(ctx context.Context) {
	c.v.Add(1)
	c.otel.Add(ctx, 1)
}

// Value returns the current count.
func (c *Counter) Value() int64 {
	return c.v.Load()
}

// Counters is the registry of orchestration outcome counters.
type Counters struct {
	// OrdersTotal counts accepted orchestration attempts.
	OrdersTotal *Counter
	// OrdersCompleted counts orchestrations that returned completed.
	OrdersCompleted *Counter
	// OrdersFailed counts orchestrations that returned failed.
	OrdersFailed *Counter
}

// all returns the counters in exposition order.
func (c *Counters) all() []*Counter {
	return []*Counter{c.OrdersTotal, c.OrdersCompleted, c.OrdersFailed}
}

// New creates the counter registry. When meter is non-nil every increment is
// also recorded on a same-named OpenTelemetry counter.
func New(meter metric.Meter) (*Counters, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("metrics")
	}

	c := &Counters{}
	for _, def := range []struct {
		name string
		desc string
		dst  **Counter
	}{
		{"orders_total", "Accepted order orchestration attempts", &c.OrdersTotal},
		{"orders_completed_total", "Orders that finished with status completed", &c.OrdersCompleted},
		{"orders_failed_total", "Orders that finished with status failed", &c.OrdersFailed},
	} {
		inst, err := meter.Int64Counter(def.name, metric.WithDescription(def.desc))
		if err != nil {
			return nil, errors.Wrapf(err, "create counter %s", def.name)
		}
		*def.dst = &Counter{name: def.name, otel: inst}
	}
	return c, nil
}

// MustNew is New without the error return, for wiring paths where a noop
// meter is used and instrument creation cannot fail.
func MustNew(meter metric.Meter) *Counters {
	c, err := New(meter)
	if err != nil {
		panic(err)
	}
	return c
}

// Snapshot returns the current value of every counter keyed by name.
func (c *Counters) Snapshot() map[string]int64 {
	snap := make(map[string]int64, 3)
	for _, counter := range c.all() {
		snap[counter.Name()] = counter.Value()
	}
	return snap
}

// WriteText writes the counters in "name value" lines, one per counter, in a
// fixed order.
func (c *Counters) WriteText(w *strings.Builder) {
	for _, counter := range c.all() {
		fmt.Fprintf(w, "%s %d\n", counter.Name(), counter.Value())
	}
}

// Handler serves the text exposition consumed by metrics scrapers.
func (c *Counters) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		var b strings.Builder
		c.WriteText(&b)

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(b.String()))
	}
}
