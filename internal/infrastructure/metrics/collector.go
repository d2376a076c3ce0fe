// Package metrics exposes exchange counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"chat-bridge/internal/application/port/output"
	"chat-bridge/internal/domain/entity"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ output.MetricsPort = (*Collector)(nil)

const namespace = "chat_bridge"

type Collector struct {
	exchanges *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	queue     prometheus.Gauge
	inFlight  prometheus.Gauge
}

// New registers the bridge metrics with reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		exchanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchanges_total",
			Help:      "Exchanges finished, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "exchange_duration_seconds",
			Help:      "Time from request to reply, including time spent queued.",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 120, 300, 600},
		}, []string{"kind"}),
		queue: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Requests waiting for the chat session.",
		}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "exchanges_in_flight",
			Help:      "Exchanges currently holding the chat session (0 or 1).",
		}),
	}
}

func (c *Collector) ObserveExchange(kind entity.ExchangeKind, outcome string, d time.Duration) {
	c.exchanges.WithLabelValues(string(kind), outcome).Inc()
	c.duration.WithLabelValues(string(kind)).Observe(d.Seconds())
}

func (c *Collector) SetQueueDepth(n int) {
	c.queue.Set(float64(n))
}

func (c *Collector) SetInFlight(n int) {
	c.inFlight.Set(float64(n))
}

// Handler serves the text exposition format for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
