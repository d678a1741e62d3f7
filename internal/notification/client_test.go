package notification_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/order-orchestrator/internal/notification"
	"github.com/xenking/order-orchestrator/internal/sim"
)

func TestNotify_Success(t *testing.T) {
	server := httptest.NewServer(sim.NewNotification(sim.NewNotificationConfig(0)).Routes())
	defer server.Close()

	c := notification.NewClient(server.URL, time.Second)
	require.NoError(t, c.Notify(context.Background(), "order-1", "trace-1"))
}

func TestNotify_PropagatesTraceHeader(t *testing.T) {
	var gotTrace string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTrace = r.Header.Get(sim.TraceHeader)
		_, _ = w.Write([]byte(`{"status":"notification_sent"}`))
	}))
	defer server.Close()

	c := notification.NewClient(server.URL, time.Second)

	require.NoError(t, c.Notify(context.Background(), "order-1", "trace-xyz"))
	assert.Equal(t, "trace-xyz", gotTrace)
}

func TestNotify_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := notification.NewClient(server.URL, time.Second)
	require.Error(t, c.Notify(context.Background(), "order-1", "trace-1"))
}

func TestNotify_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	c := notification.NewClient(server.URL, time.Second)
	require.Error(t, c.Notify(context.Background(), "order-1", "trace-1"))
}

func TestNotify_RespectsContextDeadline(t *testing.T) {
	blocked := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-blocked
	}))
	defer func() {
		close(blocked)
		server.Close()
	}()

	c := notification.NewClient(server.URL, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.Notify(ctx, "order-1", "trace-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
