// Package fetch performs single-shot page retrieval with outcome
// classification. Retry policy, if any, belongs to the caller.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// OutcomeKind tags the result of a single fetch.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeHTTPError
	OutcomeNetworkError
	OutcomeTimeout
)

// Outcome is the classified result of one GET. Exactly one variant is
// populated: Body for Success, StatusCode for HTTPError, Err for
// NetworkError; Timeout carries neither.
type Outcome struct {
	Kind       OutcomeKind
	Body       []byte
	StatusCode int
	Err        error
}

// OK reports whether the fetch succeeded.
func (o Outcome) OK() bool {
	return o.Kind == OutcomeSuccess
}

// Reason renders the non-success variants as a stable string used in
// skip tallies and logs.
func (o Outcome) Reason() string {
	switch o.Kind {
	case OutcomeSuccess:
		return ""
	case OutcomeHTTPError:
		return fmt.Sprintf("HttpError:%d", o.StatusCode)
	case OutcomeTimeout:
		return "Timeout"
	default:
		return fmt.Sprintf("NetworkError:%v", o.Err)
	}
}

// Config defines fetcher behavior.
type Config struct {
	Timeout    time.Duration
	UserAgents []string
	Headers    map[string]string
	RateLimit  float64 // requests per second; 0 disables rate limiting
	RateBurst  int
	MaxBody    int64 // response size cap in bytes; 0 means default
}

const defaultMaxBody = 10 << 20 // 10 MB

// Fetcher issues one HTTP GET per call with user-agent rotation and an
// optional shared rate limiter. Safe for concurrent use.
type Fetcher struct {
	httpClient *http.Client
	userAgents []string
	currentUA  int
	uaMutex    sync.Mutex
	limiter    *rate.Limiter
	headers    map[string]string
	maxBody    int64
}

// New creates a fetcher with the specified configuration.
func New(config Config) *Fetcher {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if len(config.UserAgents) == 0 {
		config.UserAgents = defaultUserAgents()
	}
	if config.MaxBody == 0 {
		config.MaxBody = defaultMaxBody
	}

	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		burst := config.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgents: config.UserAgents,
		limiter:    limiter,
		headers:    config.Headers,
		maxBody:    config.MaxBody,
	}
}

// Fetch performs one GET and classifies the result. It never retries;
// a non-2xx status becomes HTTPError, an exceeded deadline becomes
// Timeout, and connection, DNS, or TLS failures become NetworkError.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) Outcome {
	if _, err := url.Parse(targetURL); err != nil {
		return Outcome{Kind: OutcomeNetworkError, Err: fmt.Errorf("invalid URL: %w", err)}
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return Outcome{Kind: OutcomeNetworkError, Err: fmt.Errorf("rate limiter: %w", err)}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return Outcome{Kind: OutcomeNetworkError, Err: fmt.Errorf("create request: %w", err)}
	}
	f.setRequestHeaders(req)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return Outcome{Kind: OutcomeTimeout, Err: err}
		}
		return Outcome{Kind: OutcomeNetworkError, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Outcome{Kind: OutcomeHTTPError, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		if isTimeout(err) {
			return Outcome{Kind: OutcomeTimeout, Err: err}
		}
		return Outcome{Kind: OutcomeNetworkError, Err: fmt.Errorf("read body: %w", err)}
	}

	return Outcome{Kind: OutcomeSuccess, Body: body, StatusCode: resp.StatusCode}
}

// setRequestHeaders configures request headers including user agent rotation.
func (f *Fetcher) setRequestHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.nextUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	for key, value := range f.headers {
		req.Header.Set(key, value)
	}
}

// nextUserAgent returns the next user agent in rotation.
func (f *Fetcher) nextUserAgent() string {
	f.uaMutex.Lock()
	defer f.uaMutex.Unlock()

	ua := f.userAgents[f.currentUA]
	f.currentUA = (f.currentUA + 1) % len(f.userAgents)
	return ua
}

// isTimeout distinguishes deadline expiry from other transport failures.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// defaultUserAgents returns a small set of realistic user agent strings.
func defaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/119.0",
	}
}
