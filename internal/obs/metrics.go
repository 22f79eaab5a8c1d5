package obs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AlexKimmel/TickerGate/internal/gateway"
)

type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestFailures *prometheus.CounterVec
	RateLimited     *prometheus.CounterVec
	LimiterWait     *prometheus.HistogramVec
	QueueWait       *prometheus.HistogramVec
	QueueDepth      *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tickergate_requests_total",
				Help: "Total requests executed through a service gateway",
			},
			[]string{"service"},
		),
		RequestFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tickergate_request_failures_total",
				Help: "Requests whose wrapped operation returned an error",
			},
			[]string{"service"},
		),
		RateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tickergate_rate_limited_total",
				Help: "Requests that had to wait for token bucket credit",
			},
			[]string{"service"},
		),
		LimiterWait: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tickergate_limiter_wait_seconds",
				Help:    "Time spent waiting for rate limit credit",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"service"},
		),
		QueueWait: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tickergate_queue_wait_seconds",
				Help:    "Time a request sat in the queue before a worker picked it up",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"service"},
		),
		QueueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tickergate_queue_depth",
				Help: "Requests currently queued per service",
			},
			[]string{"service"},
		),
	}

	reg.MustRegister(
		m.RequestsTotal, m.RequestFailures, m.RateLimited,
		m.LimiterWait, m.QueueWait, m.QueueDepth,
	)
	return m
}

// GatewayHooks wires the metrics into a gateway's instrumentation points.
func (m *Metrics) GatewayHooks() gateway.Hooks {
	return gateway.Hooks{
		OnEnqueue: func(service string, depth int) {
			m.QueueDepth.WithLabelValues(service).Set(float64(depth))
		},
		OnDequeue: func(service string, depth int, queued time.Duration) {
			m.QueueDepth.WithLabelValues(service).Set(float64(depth))
			m.QueueWait.WithLabelValues(service).Observe(queued.Seconds())
		},
		OnLimited: func(service string, wait time.Duration) {
			m.RateLimited.WithLabelValues(service).Inc()
			m.LimiterWait.WithLabelValues(service).Observe(wait.Seconds())
		},
		OnComplete: func(service string, err error) {
			m.RequestsTotal.WithLabelValues(service).Inc()
			if err != nil {
				m.RequestFailures.WithLabelValues(service).Inc()
			}
		},
	}
}
