// Package monitoring exposes Prometheus metrics for the crawl pipeline.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "harvester"

var (
	// FetchOutcomes counts fetches by classified outcome
	// (success, http_error, network_error, timeout).
	FetchOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_outcomes_total",
		Help:      "Page fetches by classified outcome.",
	}, []string{"outcome"})

	// FetchesInFlight tracks concurrent fetches. Its peak value is the
	// observable evidence for the worker-pool concurrency bound.
	FetchesInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "fetches_in_flight",
		Help:      "Number of page fetches currently in flight.",
	})

	// FetchDuration observes wall time per fetch.
	FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "fetch_duration_seconds",
		Help:      "Duration of page fetches.",
		Buckets:   prometheus.DefBuckets,
	})

	// RecordsWritten counts records accepted by the sink.
	RecordsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_written_total",
		Help:      "Extracted records written to the sink.",
	})

	// PagesSkipped counts per-URL skips by reason class.
	PagesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pages_skipped_total",
		Help:      "Pages skipped without a record, by reason.",
	}, []string{"reason"})

	// ParseErrors counts extraction and parse failures.
	ParseErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "parse_errors_total",
		Help:      "Pages whose document or selectors failed to resolve.",
	})
)

// OutcomeLabel converts an outcome reason string such as
// "HttpError:404" into a bounded metric label.
func OutcomeLabel(reason string) string {
	switch {
	case reason == "":
		return "success"
	case reason == "Timeout":
		return "timeout"
	case len(reason) >= 9 && reason[:9] == "HttpError":
		return "http_error"
	default:
		return "network_error"
	}
}
