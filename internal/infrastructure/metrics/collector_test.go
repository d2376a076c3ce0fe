package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"chat-bridge/internal/domain/entity"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObserveExchange(entity.ExchangeText, "success", 3*time.Second)
	c.ObserveExchange(entity.ExchangeText, "success", time.Second)
	c.ObserveExchange(entity.ExchangeImage, "busy", 0)
	c.SetQueueDepth(4)
	c.SetInFlight(1)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.exchanges.WithLabelValues("text", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.exchanges.WithLabelValues("image", "busy")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.queue))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.inFlight))
	assert.Equal(t, 2, testutil.CollectAndCount(c.duration))
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)
	c.ObserveExchange(entity.ExchangeText, "completion_timeout", time.Minute)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `chat_bridge_exchanges_total{kind="text",outcome="completion_timeout"} 1`)
	assert.Contains(t, string(body), "chat_bridge_queue_depth 0")
}
