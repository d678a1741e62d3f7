// Package handler exposes the service's HTTP surface: order placement and
// lookup, health probes, and the metrics scrape endpoint.
package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/order-orchestrator/internal/domain/order"
	"github.com/xenking/order-orchestrator/pkg/health"
	"github.com/xenking/order-orchestrator/pkg/metrics"
)

// Handler holds the dependencies for all HTTP endpoints.
type Handler struct {
	orders   *order.Service
	counters *metrics.Counters
	health   *health.Health
}

// New constructs a Handler.
func New(orders *order.Service, counters *metrics.Counters, h *health.Health) *Handler {
	return &Handler{
		orders:   orders,
		counters: counters,
		health:   h,
	}
}

// Routes registers all endpoints on a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /order", h.placeOrder)
	mux.HandleFunc("GET /order/{id}", h.getOrder)
	mux.HandleFunc("GET /health", h.health.LiveEndpoint)
	mux.HandleFunc("GET /readyz", h.health.ReadyEndpoint)
	mux.HandleFunc("GET /metrics", h.counters.Handler())
	return mux
}

// writeJSON writes an encoded object with the given status code.
func writeJSON(w http.ResponseWriter, code int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	e.Obj(encode)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}

// writeError writes {"error": msg} plus an optional orderId.
func writeError(w http.ResponseWriter, code int, msg, orderID string) {
	writeJSON(w, code, func(e *jx.Encoder) {
		e.Field("error", func(e *jx.Encoder) {
			e.Str(msg)
		})
		if orderID != "" {
			e.Field("orderId", func(e *jx.Encoder) {
				e.Str(orderID)
			})
		}
	})
}
