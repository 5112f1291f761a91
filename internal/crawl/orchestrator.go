package crawl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"harvester/internal/monitoring"
	"harvester/internal/output"
	"harvester/internal/sitemap"
	"harvester/internal/utils"
	"harvester/pkg/types"
)

// DefaultConcurrency bounds the worker pool when no explicit limit is
// configured.
const DefaultConcurrency = 10

// Resolver produces the candidate URL set for a site. Satisfied by
// *sitemap.Resolver.
type Resolver interface {
	Resolve(ctx context.Context, homepage string) ([]string, error)
	ResolveExplicit(ctx context.Context, sitemapURL string) ([]string, error)
}

// Filter reports whether a URL should be dispatched to a worker.
type Filter func(url string) bool

// SubstringFilter builds a Filter from include and exclude substring
// lists. A URL passes when it contains every include substring and
// none of the exclude substrings. Empty lists impose no constraint.
func SubstringFilter(include, exclude []string) Filter {
	return func(url string) bool {
		for _, s := range include {
			if !strings.Contains(url, s) {
				return false
			}
		}
		for _, s := range exclude {
			if strings.Contains(url, s) {
				return false
			}
		}
		return true
	}
}

// SetupError marks a failure that prevents the crawl from starting at
// all, as opposed to per-URL failures that the run absorbs.
type SetupError struct {
	Stage string
	Err   error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup failed at %s: %v", e.Stage, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// Processor turns one URL into an Outcome. Satisfied by *Worker.
type Processor interface {
	Process(ctx context.Context, url string) Outcome
}

// Orchestrator resolves a site's URL set, filters it, and drives the
// bounded worker pool over it, writing records to the sink as workers
// complete. It owns the tallies for the final report.
type Orchestrator struct {
	resolver    Resolver
	processor   Processor
	sink        output.Sink
	filter      Filter
	logger      utils.Logger
	concurrency int
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithFilter installs a URL filter. Without one, every resolved URL is
// dispatched.
func WithFilter(f Filter) OrchestratorOption {
	return func(o *Orchestrator) { o.filter = f }
}

// WithConcurrency caps the number of in-flight workers.
func WithConcurrency(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithLogger installs the run logger.
func WithLogger(l utils.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewOrchestrator wires a resolver, a processor, and a sink into a
// runnable crawl.
func NewOrchestrator(resolver Resolver, processor Processor, sink output.Sink, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		resolver:    resolver,
		processor:   processor,
		sink:        sink,
		logger:      utils.NewLogger(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run crawls the site and returns the report of what completed.
//
// An unreachable root sitemap is a SetupError. An explicitly
// configured sitemap that turns out invalid is not: the run degrades
// to an empty URL set and finishes with an empty report. Per-URL
// failures never abort the run. When ctx is canceled, dispatch stops,
// in-flight workers finish, and the report covers only what completed.
func (o *Orchestrator) Run(ctx context.Context, site, sitemapURL string) (types.Report, error) {
	urls, err := o.resolve(ctx, site, sitemapURL)
	if err != nil {
		return types.Report{}, err
	}

	targets := o.selectTargets(urls)
	o.logger.Infof("dispatching %d of %d resolved urls", len(targets), len(urls))

	var (
		mu     sync.Mutex
		report types.Report
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

dispatch:
	for _, url := range targets {
		select {
		case <-ctx.Done():
			o.logger.Warn("crawl canceled, stopping dispatch")
			break dispatch
		default:
		}

		url := url
		g.Go(func() error {
			outcome := o.processor.Process(gctx, url)

			mu.Lock()
			defer mu.Unlock()
			switch outcome.Kind {
			case OutcomeRecord:
				if err := o.sink.Write(outcome.Record); err != nil {
					o.logger.Errorf("write %s: %v", url, err)
					report.Errored++
					return nil
				}
				monitoring.RecordsWritten.Inc()
				report.Written++
			case OutcomeSkip:
				o.logger.WithFields(map[string]interface{}{
					"url":    url,
					"reason": outcome.Reason,
				}).Debug("page skipped")
				report.Skipped++
			case OutcomeParseError:
				o.logger.Errorf("extract %s: %v", url, outcome.Err)
				report.Errored++
			}
			return nil
		})
	}

	// Workers never return errors; failures are tallied instead.
	_ = g.Wait()
	o.logger.Infof("crawl complete: written=%d skipped=%d errored=%d",
		report.Written, report.Skipped, report.Errored)
	return report, nil
}

// resolve picks the URL source. An explicit sitemap URL wins; its
// failure is degraded to an empty set so a stale config entry cannot
// take the whole run down.
func (o *Orchestrator) resolve(ctx context.Context, site, sitemapURL string) ([]string, error) {
	if sitemapURL != "" {
		urls, err := o.resolver.ResolveExplicit(ctx, sitemapURL)
		if err != nil {
			if errors.Is(err, sitemap.ErrInvalidSitemap) {
				o.logger.Warnf("configured sitemap %s is invalid, continuing with no urls: %v", sitemapURL, err)
				return nil, nil
			}
			return nil, &SetupError{Stage: "sitemap", Err: err}
		}
		return urls, nil
	}

	urls, err := o.resolver.Resolve(ctx, site)
	if err != nil {
		return nil, &SetupError{Stage: "sitemap", Err: err}
	}
	return urls, nil
}

// selectTargets applies the filter and drops duplicates. The resolver
// already dedupes its own output, but explicit sitemaps and future
// sources make no such promise.
func (o *Orchestrator) selectTargets(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	targets := make([]string, 0, len(urls))
	for _, url := range urls {
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		if o.filter != nil && !o.filter(url) {
			continue
		}
		targets = append(targets, url)
	}
	return targets
}
