// Package metrics exposes Prometheus collectors for the watcher service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cyclesTotal      prometheus.Counter
	discoveredTotal  *prometheus.CounterVec
	queuedTotal      *prometheus.CounterVec
	classifiedTotal  *prometheus.CounterVec
	emailsSentTotal  *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		cyclesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "rentalwatch_cycles_total",
				Help: "Total number of pipeline cycles run.",
			},
		)

		discoveredTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentalwatch_links_discovered_total",
				Help: "Total number of new links discovered, labeled by site.",
			},
			[]string{"site"},
		)

		queuedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentalwatch_records_queued_total",
				Help: "Total number of listing records appended to the queue, labeled by site.",
			},
			[]string{"site"},
		)

		classifiedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentalwatch_records_classified_total",
				Help: "Total number of records classified and promoted, labeled by site.",
			},
			[]string{"site"},
		)

		emailsSentTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentalwatch_emails_sent_total",
				Help: "Total number of emails sent, labeled by kind.",
			},
			[]string{"kind"},
		)

		errorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentalwatch_errors_total",
				Help: "Total number of buffered pipeline errors, labeled by scope.",
			},
			[]string{"scope"},
		)
	})
}

// RecordCycle counts one completed pipeline cycle.
func RecordCycle() {
	if cyclesTotal != nil {
		cyclesTotal.Inc()
	}
}

// RecordDiscovered counts one newly discovered link.
func RecordDiscovered(site string) {
	if discoveredTotal != nil {
		discoveredTotal.WithLabelValues(site).Inc()
	}
}

// RecordQueued counts one record appended to a site queue.
func RecordQueued(site string) {
	if queuedTotal != nil {
		queuedTotal.WithLabelValues(site).Inc()
	}
}

// RecordClassified counts one record classified and promoted.
func RecordClassified(site string) {
	if classifiedTotal != nil {
		classifiedTotal.WithLabelValues(site).Inc()
	}
}

// RecordEmailSent counts one delivered email of the given kind.
func RecordEmailSent(kind string) {
	if emailsSentTotal != nil {
		emailsSentTotal.WithLabelValues(kind).Inc()
	}
}

// RecordError counts one buffered error.
func RecordError(scope string) {
	if errorsTotal != nil {
		errorsTotal.WithLabelValues(scope).Inc()
	}
}
