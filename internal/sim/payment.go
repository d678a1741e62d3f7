// Package sim implements the payment processor and notification dispatcher
// simulators. The service under test only ever sees their HTTP contracts;
// these handlers exist so the full orchestration can run locally and in the
// integration suite.
package sim

import (
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"sync/atomic"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TraceHeader carries the correlation id on downstream calls.
const TraceHeader = "X-Trace-Id"

// PaymentConfig holds the simulator's failure rate as an explicit,
// concurrently adjustable configuration object.
type PaymentConfig struct {
	// rate stores the float64 bits of the failure rate.
	rate atomic.Uint64
}

// NewPaymentConfig creates a config with the given initial failure rate in
// [0, 1].
func NewPaymentConfig(failureRate float64) *PaymentConfig {
	c := &PaymentConfig{}
	c.SetFailureRate(failureRate)
	return c
}

// FailureRate returns the current failure rate.
func (c *PaymentConfig) FailureRate() float64 {
	return math.Float64frombits(c.rate.Load())
}

// SetFailureRate replaces the failure rate, clamped to [0, 1].
func (c *PaymentConfig) SetFailureRate(rate float64) {
	rate = math.Min(math.Max(rate, 0), 1)
	c.rate.Store(math.Float64bits(rate))
}

// Payment simulates the payment processor: each charge fails at the
// configured rate.
type Payment struct {
	cfg *PaymentConfig
	// random returns a value in [0, 1); injectable for deterministic tests.
	random func() float64
}

// NewPayment creates the payment simulator.
func NewPayment(cfg *PaymentConfig) *Payment {
	return &Payment{cfg: cfg, random: rand.Float64}
}

// Routes registers the simulator endpoints.
func (p *Payment) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /pay", p.pay)
	mux.HandleFunc("POST /config", p.configure)
	mux.HandleFunc("GET /health", liveEndpoint)
	return mux
}

// pay declares success with a fresh transaction id, or failure at the
// configured rate.
func (p *Payment) pay(w http.ResponseWriter, r *http.Request) {
	traceID := traceIDFrom(r)
	amount := readAmount(r.Body)

	lg := zctx.From(r.Context()).With(
		zap.String("traceId", traceID),
		zap.Int64("amount", amount),
	)

	if p.random() < p.cfg.FailureRate() {
		lg.Error("payment failed")
		writeObj(w, http.StatusInternalServerError, func(e *jx.Encoder) {
			e.Field("traceId", func(e *jx.Encoder) { e.Str(traceID) })
			e.Field("status", func(e *jx.Encoder) { e.Str("failed") })
		})
		return
	}

	lg.Info("payment success")
	writeObj(w, http.StatusOK, func(e *jx.Encoder) {
		e.Field("traceId", func(e *jx.Encoder) { e.Str(traceID) })
		e.Field("status", func(e *jx.Encoder) { e.Str("success") })
		e.Field("transactionId", func(e *jx.Encoder) { e.Str(uuid.New().String()) })
	})
}

// configure replaces the failure rate via {"failureRate": f}.
func (p *Payment) configure(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<12))
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "failureRate" {
			return d.Skip()
		}
		v, err := d.Float64()
		if err != nil {
			return err
		}
		p.cfg.SetFailureRate(v)
		return nil
	}); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	writeObj(w, http.StatusOK, func(e *jx.Encoder) {
		e.Field("failureRate", func(e *jx.Encoder) { e.Float64(p.cfg.FailureRate()) })
	})
}

// traceIDFrom returns the incoming trace id or generates a fresh one.
func traceIDFrom(r *http.Request) string {
	if id := r.Header.Get(TraceHeader); id != "" {
		return id
	}
	return uuid.New().String()
}

// readAmount best-effort extracts {"amount": n} for logging.
func readAmount(body io.Reader) int64 {
	data, err := io.ReadAll(io.LimitReader(body, 1<<12))
	if err != nil {
		return 0
	}
	var amount int64
	d := jx.DecodeBytes(data)
	_ = d.Obj(func(d *jx.Decoder, key string) error {
		if key != "amount" {
			return d.Skip()
		}
		v, err := d.Int64()
		if err != nil {
			return err
		}
		amount = v
		return nil
	})
	return amount
}

// writeObj writes a JSON object response.
func writeObj(w http.ResponseWriter, code int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	e.Obj(encode)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}

// liveEndpoint matches the health contract of the orchestrator.
func liveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeObj(w, http.StatusOK, func(e *jx.Encoder) {
		e.Field("status", func(e *jx.Encoder) { e.Str("healthy") })
	})
}
