// Package payment is the HTTP adapter for the external payment processor.
package payment

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

// TraceHeader carries the correlation id on every downstream call.
const TraceHeader = "X-Trace-Id"

var _ order.PaymentClient = (*Client)(nil)

// Client calls the payment processor's POST /pay endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a payment client. The timeout is a hard per-request bound
// on top of any context deadline the caller supplies.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
	}
}

// Pay charges the given amount. A declared decline (non-2xx) and a transport
// error are both returned as errors: the orchestrator does not distinguish
// them.
func (c *Client) Pay(ctx context.Context, amount int64, traceID string) (*order.PaymentResult, error) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("amount", func(e *jx.Encoder) {
			e.Int64(amount)
		})
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pay", bytes.NewReader(e.Bytes()))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(TraceHeader, traceID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "payment request")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Errorf("payment declined (status %d)", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}

	result := &order.PaymentResult{}
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "transactionId":
			v, err := d.Str()
			if err != nil {
				return err
			}
			result.TransactionID = v
			return nil
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}

	return result, nil
}
