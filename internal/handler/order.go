package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/order-orchestrator/internal/domain/order"
)

// maxBodySize caps the accepted request body.
const maxBodySize = 1 << 16

// orderRequest is the decoded POST /order body.
type orderRequest struct {
	Amount    int64
	HasAmount bool
}

// decodeOrderRequest parses {"amount": n}, tolerating unknown fields.
func decodeOrderRequest(data []byte) (orderRequest, error) {
	var req orderRequest
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "amount":
			v, err := d.Int64()
			if err != nil {
				return err
			}
			req.Amount = v
			req.HasAmount = true
			return nil
		default:
			return d.Skip()
		}
	}); err != nil {
		return orderRequest{}, errors.Wrap(err, "decode body")
	}
	return req, nil
}

// placeOrder handles POST /order.
func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}

	req, err := decodeOrderRequest(body)
	if err != nil || !req.HasAmount || req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "Amount is required", "")
		return
	}

	result, err := h.orders.PlaceOrder(r.Context(), req.Amount)
	if err != nil {
		if errors.Is(err, order.ErrInvalidAmount) {
			writeError(w, http.StatusBadRequest, "Amount is required", "")
			return
		}
		// Pending insert failed: no order identity exists to hand back.
		zctx.From(r.Context()).Error("order rejected", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Order failed", "")
		return
	}

	if result.Status != order.StatusCompleted {
		// Downstream failure was absorbed into a terminal failed status. The
		// caller gets a generic error plus the order id for out-of-band
		// status queries; details stay in the logs, keyed by traceId.
		writeError(w, http.StatusInternalServerError, "Order failed", result.OrderID)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Field("orderId", func(e *jx.Encoder) {
			e.Str(result.OrderID)
		})
		e.Field("status", func(e *jx.Encoder) {
			e.Str(string(result.Status))
		})
	})
}

// getOrder handles GET /order/{id}, the out-of-band status query.
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	o, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Order not found", "")
			return
		}
		zctx.From(r.Context()).Error("order lookup failed",
			zap.String("orderId", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Order lookup failed", "")
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Field("orderId", func(e *jx.Encoder) {
			e.Str(o.ID)
		})
		e.Field("amount", func(e *jx.Encoder) {
			e.Int64(o.Amount)
		})
		e.Field("status", func(e *jx.Encoder) {
			e.Str(string(o.Status))
		})
		e.Field("createdAt", func(e *jx.Encoder) {
			e.Str(o.CreatedAt.UTC().Format(time.RFC3339))
		})
	})
}
