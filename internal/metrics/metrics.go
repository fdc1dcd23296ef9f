package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "supply_ledger"

type Collector struct {
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	transitions   *prometheus.CounterVec
	stockAdjusted *prometheus.CounterVec
	authDenials   *prometheus.CounterVec
	eventsFailed  prometheus.Counter
}

// NewCollector creates the service collectors and registers them on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route template, method and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route template.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_status_transitions_total",
			Help:      "Committed transaction status changes.",
		}, []string{"from", "to"}),
		stockAdjusted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_stock_units_total",
			Help:      "Units moved in or out of stock by delivered transactions.",
		}, []string{"transaction_type"}),
		authDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authorization_denials_total",
			Help:      "Requests rejected by the authorization policy.",
		}, []string{"operation"}),
		eventsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_events_failed_total",
			Help:      "Stock events that could not be published.",
		}),
	}
	reg.MustRegister(c.httpRequests, c.httpDuration, c.transitions, c.stockAdjusted, c.authDenials, c.eventsFailed)
	return c
}

func (c *Collector) ObserveHTTP(route, method string, code int, elapsed time.Duration) {
	c.httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	c.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func (c *Collector) ObserveTransition(from, to string) {
	c.transitions.WithLabelValues(from, to).Inc()
}

// ObserveStock records the absolute units moved by a delivered transaction.
func (c *Collector) ObserveStock(transactionType string, delta int) {
	if delta < 0 {
		delta = -delta
	}
	c.stockAdjusted.WithLabelValues(transactionType).Add(float64(delta))
}

func (c *Collector) ObserveDenied(operation string) {
	c.authDenials.WithLabelValues(operation).Inc()
}

func (c *Collector) ObserveEventFailure() {
	c.eventsFailed.Inc()
}

// StockUnits exposes the stock counter for one transaction type.
func (c *Collector) StockUnits(transactionType string) prometheus.Counter {
	return c.stockAdjusted.WithLabelValues(transactionType)
}

func (c *Collector) Denials(operation string) prometheus.Counter {
	return c.authDenials.WithLabelValues(operation)
}

func (c *Collector) EventFailures() prometheus.Counter {
	return c.eventsFailed
}
