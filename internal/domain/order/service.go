package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/order-orchestrator/pkg/metrics"
)

// PaymentResult holds the outcome of a successful payment call.
type PaymentResult struct {
	TransactionID string
}

// PaymentClient charges the given amount. Any returned error, whether a
// declared decline or a transport failure, is treated as a business failure.
type PaymentClient interface {
	Pay(ctx context.Context, amount int64, traceID string) (*PaymentResult, error)
}

// NotificationClient dispatches an order notification.
type NotificationClient interface {
	Notify(ctx context.Context, orderID, traceID string) error
}

// PlaceOrderResult is returned for every accepted order. Status is always
// terminal; a pending order is never visible to the caller.
type PlaceOrderResult struct {
	OrderID string
	TraceID string
	Status  Status
}

// ServiceConfig holds the tunable parts of the orchestrator.
type ServiceConfig struct {
	// PaymentTimeout bounds a single payment call. Zero means DefaultCallTimeout.
	PaymentTimeout time.Duration
	// NotificationTimeout bounds a single notification call. Zero means
	// DefaultCallTimeout.
	NotificationTimeout time.Duration
	// TracerProvider is used for the per-order span. Nil falls back to the
	// global provider.
	TracerProvider trace.TracerProvider
}

// DefaultCallTimeout bounds downstream calls when no explicit timeout is
// configured. Generous, but finite: an unresponsive dependency must not stall
// an orchestration forever.
const DefaultCallTimeout = 10 * time.Second

// Service orchestrates order placement: persist a pending record, charge
// payment, dispatch a notification, finalize the status, and account the
// outcome.
type Service struct {
	orders        Repository
	payments      PaymentClient
	notifications NotificationClient
	counters      *metrics.Counters
	tracer        trace.Tracer

	paymentTimeout      time.Duration
	notificationTimeout time.Duration
}

// NewService creates an order Service with the required dependencies.
func NewService(
	cfg ServiceConfig,
	orders Repository,
	payments PaymentClient,
	notifications NotificationClient,
	counters *metrics.Counters,
) *Service {
	if cfg.PaymentTimeout <= 0 {
		cfg.PaymentTimeout = DefaultCallTimeout
	}
	if cfg.NotificationTimeout <= 0 {
		cfg.NotificationTimeout = DefaultCallTimeout
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Service{
		orders:              orders,
		payments:            payments,
		notifications:       notifications,
		counters:            counters,
		tracer:              tp.Tracer("order"),
		paymentTimeout:      cfg.PaymentTimeout,
		notificationTimeout: cfg.NotificationTimeout,
	}
}

// PlaceOrder runs one orchestration. The order is inserted as pending, the
// payment and notification calls run strictly in sequence, and the record is
// finalized to completed or failed.
//
// Error returns are reserved for the two early exits: ErrInvalidAmount (no
// side effects at all) and StoreError (pending insert failed, no downstream
// calls, no order identity). Downstream failures are absorbed: the result
// carries StatusFailed and a nil error.
func (s *Service) PlaceOrder(ctx context.Context, amount int64) (*PlaceOrderResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	orderID := uuid.New().String()
	traceID := uuid.New().String()

	ctx, span := s.tracer.Start(ctx, "PlaceOrder",
		trace.WithAttributes(
			attribute.String("order.id", orderID),
			attribute.Int64("order.amount", amount),
		))
	defer span.End()

	lg := zctx.From(ctx).With(
		zap.String("orderId", orderID),
		zap.String("traceId", traceID),
	)

	s.counters.OrdersTotal.Inc(ctx)

	o := &Order{
		ID:      orderID,
		Amount:  amount,
		Status:  StatusPending,
		TraceID: traceID,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		lg.Error("order insert failed", zap.Error(err))
		return nil, &StoreError{Op: "create order", Err: err}
	}
	lg.Info("order created", zap.Int64("amount", amount))

	status := StatusCompleted
	if err := s.charge(ctx, amount, traceID); err != nil {
		lg.Error("payment failed", zap.Error(err))
		status = StatusFailed
	} else if err := s.notify(ctx, orderID, traceID); err != nil {
		// A notification transport error fails the order even though payment
		// already went through. Kept for parity with the service this
		// replaces; flagged in DESIGN.md as a defect candidate.
		lg.Error("notification failed", zap.Error(err))
		status = StatusFailed
	}

	// Best effort: the terminal outcome is already decided, so a failed
	// update is logged and the caller still gets the decided status.
	if err := s.orders.UpdateStatus(ctx, orderID, status); err != nil {
		lg.Error("order status update failed",
			zap.String("status", string(status)),
			zap.Error(err))
	}

	switch status {
	case StatusCompleted:
		s.counters.OrdersCompleted.Inc(ctx)
		lg.Info("order completed")
	case StatusFailed:
		s.counters.OrdersFailed.Inc(ctx)
	}

	return &PlaceOrderResult{
		OrderID: orderID,
		TraceID: traceID,
		Status:  status,
	}, nil
}

// charge runs the payment call under its own deadline.
func (s *Service) charge(ctx context.Context, amount int64, traceID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.paymentTimeout)
	defer cancel()

	if _, err := s.payments.Pay(ctx, amount, traceID); err != nil {
		return errors.Wrap(err, "pay")
	}
	return nil
}

// notify runs the notification call under its own deadline.
func (s *Service) notify(ctx context.Context, orderID, traceID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.notificationTimeout)
	defer cancel()

	if err := s.notifications.Notify(ctx, orderID, traceID); err != nil {
		return errors.Wrap(err, "notify")
	}
	return nil
}

// GetOrder returns the stored order for out-of-band status queries.
func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "get order %s", id)
	}
	return o, nil
}
