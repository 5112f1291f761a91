// Package sitemap resolves a site's published sitemaps into the full
// set of listed page URLs. Nested sitemap indexes are walked breadth
// first; gzip-compressed sitemaps are accepted.
package sitemap

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"harvester/internal/urlutil"
	"harvester/internal/utils"
)

// ErrInvalidSitemap marks an explicit sitemap URL that could not be
// fetched or parsed. Callers degrade to an empty URL set rather than
// aborting the crawl.
var ErrInvalidSitemap = errors.New("invalid sitemap")

const (
	defaultMaxFetches = 500
	defaultTimeout    = 30 * time.Second
)

// Resolver fetches and walks sitemap trees.
type Resolver struct {
	client     *http.Client
	logger     utils.Logger
	userAgent  string
	maxFetches int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClient replaces the HTTP client, used by tests and callers that
// need custom transports.
func WithClient(client *http.Client) Option {
	return func(r *Resolver) { r.client = client }
}

// WithLogger attaches a logger for per-sitemap warnings.
func WithLogger(logger utils.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// WithMaxFetches caps how many sitemap documents one resolution may fetch.
func WithMaxFetches(n int) Option {
	return func(r *Resolver) { r.maxFetches = n }
}

// WithUserAgent sets the User-Agent header on sitemap requests.
func WithUserAgent(ua string) Option {
	return func(r *Resolver) { r.userAgent = ua }
}

// NewResolver creates a resolver with sensible defaults.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		client:     &http.Client{Timeout: defaultTimeout},
		logger:     utils.NopLogger{},
		maxFetches: defaultMaxFetches,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve walks the site's published root sitemap
// (<homepage>/sitemap.xml) and returns every listed page URL,
// de-duplicated, resolved absolute against the homepage. A root
// sitemap that cannot be fetched or parsed is an error: with no URL
// source at all the crawl cannot start.
func (r *Resolver) Resolve(ctx context.Context, homepage string) ([]string, error) {
	root := strings.TrimRight(homepage, "/") + "/sitemap.xml"
	pages, err := r.walk(ctx, root, homepage)
	if err != nil {
		return nil, fmt.Errorf("resolve sitemap for %s: %w", homepage, err)
	}
	return pages, nil
}

// ResolveExplicit walks the given sitemap URL. A sitemap that cannot
// be fetched or parsed yields ErrInvalidSitemap.
func (r *Resolver) ResolveExplicit(ctx context.Context, sitemapURL string) ([]string, error) {
	pages, err := r.walk(ctx, sitemapURL, sitemapURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSitemap, sitemapURL, err)
	}
	return pages, nil
}

// walk traverses the sitemap tree breadth first starting at root.
// The root document must be fetchable and parseable; failures in
// nested sub-sitemaps are logged and skipped.
func (r *Resolver) walk(ctx context.Context, root, base string) ([]string, error) {
	queue := []string{root}
	visited := make(map[string]bool)
	seen := make(map[string]bool)
	var pages []string

	for len(queue) > 0 {
		if len(visited) >= r.maxFetches {
			r.logger.Warnf("sitemap fetch cap of %d reached, truncating walk", r.maxFetches)
			break
		}
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true

		data, err := r.fetch(ctx, current)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if current == root {
				return nil, err
			}
			r.logger.WithField("sitemap", current).Warnf("failed to fetch sub-sitemap: %v", err)
			continue
		}

		subs, urls, err := parseSitemap(data)
		if err != nil {
			if current == root {
				return nil, err
			}
			r.logger.WithField("sitemap", current).Warnf("failed to parse sub-sitemap: %v", err)
			continue
		}

		for _, sub := range subs {
			queue = append(queue, urlutil.ResolveReference(current, sub))
		}
		for _, u := range urls {
			abs := urlutil.ResolveReference(base, u)
			if !seen[abs] {
				seen[abs] = true
				pages = append(pages, abs)
			}
		}
	}

	return pages, nil
}

func (r *Resolver) fetch(ctx context.Context, sitemapURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sitemapURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", sitemapURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: HTTP %d", sitemapURL, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sitemapURL, err)
	}
	return maybeGunzip(data)
}

// maybeGunzip transparently decompresses gzip payloads, detected by
// magic bytes rather than URL suffix.
func maybeGunzip(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		return data, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gunzip sitemap: %w", err)
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

type sitemapIndex struct {
	Sitemaps []locEntry `xml:"sitemap"`
}

type urlSet struct {
	URLs []locEntry `xml:"url"`
}

type locEntry struct {
	Location string `xml:"loc"`
}

// parseSitemap decodes one sitemap document, returning nested sitemap
// locations and page locations. The root element decides the kind:
// <sitemapindex> yields sub-sitemaps, <urlset> yields pages.
func parseSitemap(data []byte) (subs []string, pages []string, err error) {
	root, err := rootElement(data)
	if err != nil {
		return nil, nil, err
	}

	switch root {
	case "sitemapindex":
		var idx sitemapIndex
		if err := xml.Unmarshal(data, &idx); err != nil {
			return nil, nil, fmt.Errorf("parse sitemap index: %w", err)
		}
		for _, entry := range idx.Sitemaps {
			if loc := strings.TrimSpace(entry.Location); loc != "" {
				subs = append(subs, loc)
			}
		}
		return subs, nil, nil
	case "urlset":
		var set urlSet
		if err := xml.Unmarshal(data, &set); err != nil {
			return nil, nil, fmt.Errorf("parse urlset: %w", err)
		}
		for _, entry := range set.URLs {
			if loc := strings.TrimSpace(entry.Location); loc != "" {
				pages = append(pages, loc)
			}
		}
		return nil, pages, nil
	default:
		return nil, nil, fmt.Errorf("unexpected root element %q", root)
	}
}

// rootElement returns the local name of the first XML start element.
func rootElement(data []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := decoder.Token()
		if err != nil {
			return "", fmt.Errorf("not an XML document: %w", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}
