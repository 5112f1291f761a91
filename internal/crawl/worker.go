// Package crawl composes the fetcher, the selector engine, and a
// bounded worker pool into the crawl pipeline.
package crawl

import (
	"context"
	"fmt"
	"time"

	"harvester/internal/extract"
	"harvester/internal/fetch"
	"harvester/internal/monitoring"
	"harvester/internal/urlutil"
	"harvester/pkg/types"
)

// Fetcher retrieves one page. Satisfied by *fetch.Fetcher; tests
// substitute stubs.
type Fetcher interface {
	Fetch(ctx context.Context, url string) fetch.Outcome
}

// OutcomeKind tags the terminal state of processing one URL.
type OutcomeKind int

const (
	// OutcomeRecord means all required fields extracted; Record is set.
	OutcomeRecord OutcomeKind = iota
	// OutcomeSkip means the fetch did not produce a usable page;
	// Reason carries the classification (e.g. "HttpError:404").
	OutcomeSkip
	// OutcomeParseError means the document or its selectors failed;
	// Err carries the cause.
	OutcomeParseError
)

// Outcome is the terminal result of one URL's pipeline run.
type Outcome struct {
	Kind   OutcomeKind
	URL    string
	Record types.Record
	Reason string
	Err    error
}

// Worker turns one URL into one record, a skip, or a parse error.
// Each invocation is independent; the only side effect is the single
// network call inside the fetcher. The worker never retries.
type Worker struct {
	fetcher Fetcher
	spec    extract.Spec
	order   []string
}

// NewWorker builds a worker over the given fetcher and extraction spec.
func NewWorker(fetcher Fetcher, spec extract.Spec) *Worker {
	order := make([]string, 0, len(spec.Fields))
	for _, rule := range spec.Fields {
		order = append(order, rule.Name)
	}
	return &Worker{fetcher: fetcher, spec: spec, order: order}
}

// Process runs the fetch-parse-validate pipeline for one URL.
//
// A non-success fetch is a Skip. A document that cannot be parsed, or
// whose required selectors do not resolve, is a ParseError. Only a
// page that passes all three stages yields a Record, with its section
// path attached.
func (w *Worker) Process(ctx context.Context, url string) Outcome {
	start := time.Now()
	monitoring.FetchesInFlight.Inc()
	fetched := w.fetcher.Fetch(ctx, url)
	monitoring.FetchesInFlight.Dec()
	monitoring.FetchDuration.Observe(time.Since(start).Seconds())
	monitoring.FetchOutcomes.WithLabelValues(monitoring.OutcomeLabel(fetched.Reason())).Inc()

	if !fetched.OK() {
		monitoring.PagesSkipped.WithLabelValues(monitoring.OutcomeLabel(fetched.Reason())).Inc()
		return Outcome{Kind: OutcomeSkip, URL: url, Reason: fetched.Reason()}
	}

	doc, err := extract.ParseDocument(fetched.Body)
	if err != nil {
		monitoring.ParseErrors.Inc()
		return Outcome{Kind: OutcomeParseError, URL: url, Err: fmt.Errorf("parse %s: %w", url, err)}
	}

	values, err := extract.Extract(doc, w.spec, url)
	if err != nil {
		monitoring.ParseErrors.Inc()
		return Outcome{Kind: OutcomeParseError, URL: url, Err: err}
	}

	return Outcome{
		Kind: OutcomeRecord,
		URL:  url,
		Record: types.Record{
			Fields:     values,
			FieldOrder: w.order,
			URL:        url,
			Sections:   urlutil.PathHierarchy(url),
		},
	}
}
