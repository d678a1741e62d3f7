package payment_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/order-orchestrator/internal/payment"
	"github.com/xenking/order-orchestrator/internal/sim"
)

func TestPay_Success(t *testing.T) {
	server := httptest.NewServer(sim.NewPayment(sim.NewPaymentConfig(0)).Routes())
	defer server.Close()

	c := payment.NewClient(server.URL, time.Second)

	result, err := c.Pay(context.Background(), 100, "trace-1")
	require.NoError(t, err)
	assert.NotEmpty(t, result.TransactionID)
}

func TestPay_Declined(t *testing.T) {
	server := httptest.NewServer(sim.NewPayment(sim.NewPaymentConfig(1)).Routes())
	defer server.Close()

	c := payment.NewClient(server.URL, time.Second)

	_, err := c.Pay(context.Background(), 100, "trace-1")
	require.Error(t, err)
}

func TestPay_PropagatesTraceHeader(t *testing.T) {
	var gotTrace string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTrace = r.Header.Get(payment.TraceHeader)
		_, _ = w.Write([]byte(`{"status":"success","transactionId":"txn-1"}`))
	}))
	defer server.Close()

	c := payment.NewClient(server.URL, time.Second)

	result, err := c.Pay(context.Background(), 42, "trace-abc")
	require.NoError(t, err)
	assert.Equal(t, "trace-abc", gotTrace)
	assert.Equal(t, "txn-1", result.TransactionID)
}

func TestPay_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close() // connection refused from here on

	c := payment.NewClient(server.URL, time.Second)

	_, err := c.Pay(context.Background(), 100, "trace-1")
	require.Error(t, err)
}

func TestPay_RespectsContextDeadline(t *testing.T) {
	blocked := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer func() {
		close(blocked)
		server.Close()
	}()

	c := payment.NewClient(server.URL, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Pay(ctx, 100, "trace-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
