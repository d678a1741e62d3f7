// Package notification is the HTTP adapter for the external notification
// dispatcher.
package notification

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/xenking/order-orchestrator/internal/domain/order"
)

// traceHeader carries the correlation id, matching the payment adapter.
const traceHeader = "X-Trace-Id"

var _ order.NotificationClient = (*Client)(nil)

// Client calls the notification dispatcher's POST /notify endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a notification client with a hard per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
	}
}

// Notify dispatches the order notification. The dispatcher's acknowledgement
// body is not interpreted; only transport errors and non-2xx responses are
// reported.
func (c *Client) Notify(ctx context.Context, orderID, traceID string) error {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("orderId", func(e *jx.Encoder) {
			e.Str(orderID)
		})
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/notify", bytes.NewReader(e.Bytes()))
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(traceHeader, traceID)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "notification request")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("notification rejected (status %d)", resp.StatusCode)
	}
	return nil
}
