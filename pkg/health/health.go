// Package health provides liveness and readiness endpoints.
//
// Liveness and readiness are deliberately decoupled: the liveness endpoint
// reports healthy as soon as the process serves traffic, while readiness is
// gated on registered checks (store connectivity) plus an explicit ready
// flag. A service that is alive but still connecting reports healthy and
// not-ready at the same time.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc reports nil when the checked component is ready.
type CheckFunc func(ctx context.Context) error

// check pairs a named readiness check with its evaluation timeout.
type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc
}

// Health tracks service readiness.
type Health struct {
	ready atomic.Bool

	mu     sync.RWMutex
	checks []check
}

// New creates a Health instance in the not-ready state.
func New() *Health {
	return &Health{}
}

// AddReadinessCheck registers a readiness check evaluated on every readiness
// probe.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, check{name: name, timeout: timeout, fn: fn})
}

// SetReady flips the explicit ready flag. Typically called with true once
// initialization completes and with false during graceful shutdown.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the ready flag is set and every registered check
// passes.
func (h *Health) IsReady(ctx context.Context) bool {
	return len(h.failures(ctx)) == 0 && h.ready.Load()
}

// failures evaluates all checks and returns name -> error message for the
// ones that failed.
func (h *Health) failures(ctx context.Context) map[string]string {
	h.mu.RLock()
	checks := make([]check, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	failed := make(map[string]string)
	for _, c := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := c.fn(checkCtx)
		cancel()
		if err != nil {
			failed[c.name] = err.Error()
		}
	}
	return failed
}

// statusResponse is the JSON body for both endpoints.
type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint always reports healthy: if the process can answer, it is
// alive. Readiness problems never show up here.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(statusResponse{Status: "healthy"})
}

// ReadyEndpoint reports 200 when the service is ready for traffic and 503
// with per-check failure details otherwise.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	failed := h.failures(r.Context())
	if !h.ready.Load() {
		failed["_readiness"] = "service is not ready"
	}

	resp := statusResponse{Status: "ready"}
	code := http.StatusOK
	if len(failed) > 0 {
		resp.Status = "not ready"
		resp.Checks = failed
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
