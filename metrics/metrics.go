package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation outcomes.
const (
	OutcomeOK            = "ok"
	OutcomeStockExceeded = "stock_exceeded"
	OutcomeNotFound      = "not_found"
	OutcomeFailed        = "failed"
	OutcomeIgnored       = "ignored"
)

// CartMetrics holds the collectors updated by the cart service.
type CartMetrics struct {
	Operations *prometheus.CounterVec
	RemoteMS   *prometheus.HistogramVec
	CartSize   prometheus.Histogram
}

// New registers the cart metrics on reg.
func New(reg prometheus.Registerer) *CartMetrics {
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "cart",
		Name:      "operations_total",
		Help:      "Cart operations by outcome.",
	}, []string{"operation", "outcome"})
	remote := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storefront",
		Subsystem: "cart",
		Name:      "remote_call_duration_ms",
		Help:      "Latency of stock and catalog lookups in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"call"})
	size := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "storefront",
		Subsystem: "cart",
		Name:      "size_lines",
		Help:      "Number of lines in a cart after each committed change.",
		Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
	})

	reg.MustRegister(operations, remote, size)
	return &CartMetrics{Operations: operations, RemoteMS: remote, CartSize: size}
}

// Observe counts one finished operation. A nil receiver is a no-op.
func (m *CartMetrics) Observe(operation, outcome string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, outcome).Inc()
}

// ObserveRemote records the latency of a remote call started at start.
func (m *CartMetrics) ObserveRemote(call string, start time.Time) {
	if m == nil {
		return
	}
	m.RemoteMS.WithLabelValues(call).Observe(float64(time.Since(start).Milliseconds()))
}

// ObserveCartSize records the number of lines in a cart after a committed change.
func (m *CartMetrics) ObserveCartSize(lines int) {
	if m == nil {
		return
	}
	m.CartSize.Observe(float64(lines))
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
