// Package bootstrap establishes the store connection before the service is
// marked ready.
//
// The connector is a two-state machine: it starts Disconnected, probes the
// store at a fixed interval, and flips to Ready once a probe and the schema
// setup both succeed. It never fails terminally on its own; it blocks
// readiness, not process startup.
package bootstrap

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// State is the connector's current position in the state machine.
type State int32

const (
	StateDisconnected State = iota
	StateReady
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// DefaultInterval is the fixed backoff between probe attempts.
const DefaultInterval = 2 * time.Second

// Config holds the connector's probe functions and retry policy.
type Config struct {
	// Probe is a lightweight liveness check against the store.
	Probe func(ctx context.Context) error
	// Setup runs once after the first successful probe. It must be
	// idempotent (create-if-absent schema).
	Setup func(ctx context.Context) error
	// Interval is the fixed wait between failed attempts. Zero means
	// DefaultInterval.
	Interval time.Duration
	// MaxAttempts caps the number of probe attempts. Zero retries forever,
	// which is the reference behavior; a bound is available for deployments
	// that prefer failing fast over waiting out an outage.
	MaxAttempts int
}

// ErrAttemptsExhausted is returned by Run when MaxAttempts is set and every
// attempt failed.
var ErrAttemptsExhausted = errors.New("bootstrap: attempts exhausted")

// Connector drives the store connection state machine.
type Connector struct {
	cfg   Config
	state atomic.Int32
}

// New creates a Connector in the Disconnected state.
func New(cfg Config) *Connector {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Connector{cfg: cfg}
}

// State returns the current state. Safe for concurrent use; readiness checks
// poll this from request goroutines.
func (c *Connector) State() State {
	return State(c.state.Load())
}

// Ready reports whether the connector has reached StateReady.
func (c *Connector) Ready() bool {
	return c.State() == StateReady
}

// Run probes the store until it succeeds, runs Setup, and transitions to
// Ready. It returns nil on success, ctx.Err() when cancelled, and
// ErrAttemptsExhausted when a configured attempt cap is hit.
func (c *Connector) Run(ctx context.Context) error {
	lg := zctx.From(ctx)

	for attempt := 1; ; attempt++ {
		err := c.attempt(ctx)
		if err == nil {
			c.state.Store(int32(StateReady))
			lg.Info("store ready", zap.Int("attempts", attempt))
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lg.Warn("store unavailable, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("interval", c.cfg.Interval),
			zap.Error(err))

		if c.cfg.MaxAttempts > 0 && attempt >= c.cfg.MaxAttempts {
			return errors.Wrapf(ErrAttemptsExhausted, "after %d attempts", attempt)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.Interval):
		}
	}
}

// attempt runs one probe plus, on success, the idempotent setup.
func (c *Connector) attempt(ctx context.Context) error {
	if err := c.cfg.Probe(ctx); err != nil {
		return errors.Wrap(err, "probe")
	}
	if c.cfg.Setup != nil {
		if err := c.cfg.Setup(ctx); err != nil {
			return errors.Wrap(err, "setup")
		}
	}
	return nil
}
