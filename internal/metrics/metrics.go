// Package metrics exposes prometheus counters for lending operations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the service layer reports into
type Recorder interface {
	RecordOperation(operation, outcome string, duration time.Duration)
	RecordNotification(kind string, err error)
	RecordReminders(kind string, count int)
}

// Collector records lending metrics into a prometheus registry
type Collector struct {
	operations    *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	notifications *prometheus.CounterVec
	reminders     *prometheus.CounterVec
}

// NewCollector creates the metrics and registers them with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lending_operations_total",
			Help: "Lending operations by outcome",
		}, []string{"operation", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lending_operation_duration_seconds",
			Help:    "Lending operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lending_notifications_total",
			Help: "Notifications handed to the notifier by delivery result",
		}, []string{"kind", "result"}),
		reminders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lending_reminders_total",
			Help: "Reminders produced by the scheduled sweeps",
		}, []string{"kind"}),
	}

	reg.MustRegister(c.operations, c.latency, c.notifications, c.reminders)
	return c
}

func (c *Collector) RecordOperation(operation, outcome string, duration time.Duration) {
	c.operations.WithLabelValues(operation, outcome).Inc()
	c.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

func (c *Collector) RecordNotification(kind string, err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	c.notifications.WithLabelValues(kind, result).Inc()
}

func (c *Collector) RecordReminders(kind string, count int) {
	c.reminders.WithLabelValues(kind).Add(float64(count))
}

// Nop discards everything
type Nop struct{}

func (Nop) RecordOperation(string, string, time.Duration) {}
func (Nop) RecordNotification(string, error)              {}
func (Nop) RecordReminders(string, int)                   {}

// Handler serves the prometheus scrape endpoint
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
