package fetcher

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"feedcrawler/internal/domain/entity"
	"feedcrawler/internal/observability/metrics"
	"feedcrawler/internal/resilience/circuitbreaker"
)

// Result is the raw payload handed to the Extractor.
type Result struct {
	Bytes       []byte
	ContentType string
	FinalURL    string
}

// Blocklist is the subset of the Store the Fetcher needs: membership
// checks and the ability to add a newly discovered hostile host. Hosts
// added during a cycle take effect immediately for subsequent requests,
// since implementations are expected to cache in-process.
type Blocklist interface {
	IsBlocked(ctx context.Context, host string) (bool, error)
	Block(ctx context.Context, host, reason string) error
}

// Fetcher implements the direct+browser two-tier retrieval contract
// described in the specification's Fetcher component.
type Fetcher struct {
	cfg        Config
	client     *http.Client
	cb         *circuitbreaker.CircuitBreaker
	blocklist  Blocklist

	mu      sync.Mutex
	browser *browser // lazy process-wide singleton, see browser.go
}

// New creates a Fetcher. blocklist may be nil in tests that do not exercise
// blocking behavior.
func New(cfg Config, blocklist Blocklist) *Fetcher {
	return &Fetcher{
		cfg:       cfg,
		blocklist: blocklist,
		cb:        circuitbreaker.New(circuitbreaker.WebScraperConfig()),
		client:    newDirectClient(cfg),
	}
}

func newDirectClient(cfg Config) *http.Client {
	return &http.Client{
		Timeout: cfg.DirectTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= cfg.MaxRedirects {
				return fmt.Errorf("%w: %d redirects", ErrTooManyRedirects, len(via))
			}
			if err := validateOutboundURL(req.URL.String()); err != nil {
				return err
			}
			return nil
		},
	}
}

// Fetch implements the Fetcher contract: fetch(url, timeout) -> {bytes,
// content_type, final_url}.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	host := entity.HostOf(rawURL, "")
	start := time.Now()

	if f.blocklist != nil {
		blocked, err := f.blocklist.IsBlocked(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("check blocklist: %w", err)
		}
		if blocked {
			metrics.RecordContentFetchFailed(time.Since(start))
			return nil, fmt.Errorf("%w: %s", ErrBlocked, host)
		}
	}

	result, directErr := f.fetchDirect(ctx, rawURL)
	if directErr == nil {
		metrics.RecordContentFetchSuccess(time.Since(start), len(result.Bytes))
		return result, nil
	}

	if sc, ok := statusCodeOf(directErr); ok {
		switch {
		case sc == http.StatusNotFound:
			metrics.RecordContentFetchFailed(time.Since(start))
			return nil, fmt.Errorf("%w", ErrNotFound)
		case sc == http.StatusUnauthorized || sc == http.StatusForbidden:
			browserResult, browserErr := f.fetchViaBrowser(ctx, rawURL)
			if browserErr == nil {
				metrics.RecordContentFetchSuccess(time.Since(start), len(browserResult.Bytes))
				return browserResult, nil
			}
			if f.blocklist != nil {
				reason := fmt.Sprintf("HTTP %d + browser fetch failed", sc)
				if blockErr := f.blocklist.Block(ctx, host, reason); blockErr != nil {
					slog.Error("failed to record blocked domain", slog.String("host", host), slog.Any("error", blockErr))
				}
			}
			metrics.RecordContentFetchFailed(time.Since(start))
			return nil, fmt.Errorf("%w: %s", ErrBlocked, host)
		}
	}

	metrics.RecordContentFetchFailed(time.Since(start))
	return nil, directErr
}

func (f *Fetcher) fetchDirect(ctx context.Context, rawURL string) (*Result, error) {
	v, err := f.cb.Execute(func() (interface{}, error) {
		return f.doFetchDirect(ctx, rawURL)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func (f *Fetcher) doFetchDirect(ctx context.Context, rawURL string) (*Result, error) {
	if err := validateOutboundURL(rawURL); err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.cfg.DirectTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml,application/pdf;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		if reqCtx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("transport error: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 {
		return nil, &statusCodeError{code: resp.StatusCode, status: resp.Status}
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, &statusCodeError{code: resp.StatusCode, status: resp.Status}
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &statusCodeError{code: resp.StatusCode, status: resp.Status}
	}

	limited := io.LimitReader(resp.Body, f.cfg.MaxBodySize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.cfg.MaxBodySize {
		return nil, fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, len(body))
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Result{
		Bytes:       body,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    finalURL,
	}, nil
}

// statusCodeError carries an HTTP status code out of doFetchDirect so
// Fetch can branch on 404/401/403/5xx per the specification.
type statusCodeError struct {
	code   int
	status string
}

func (e *statusCodeError) Error() string {
	return fmt.Sprintf("HTTP %s", e.status)
}

func statusCodeOf(err error) (int, bool) {
	if e, ok := err.(*statusCodeError); ok {
		return e.code, true
	}
	return 0, false
}

// HTTPStatus extracts the HTTP status code and status text from err, if it
// (or something it wraps) carries one — notably the 5xx case, which Fetch
// returns to the caller unconverted to a sentinel. ok is false for every
// other failure (timeouts, DNS errors, etc.), which carry no status to
// report.
func HTTPStatus(err error) (code int, status string, ok bool) {
	var e *statusCodeError
	if errors.As(err, &e) {
		return e.code, e.status, true
	}
	return 0, "", false
}

// validateOutboundURL enforces scheme and SSRF checks on a URL this
// process is about to dial, reusing entity's shared validation logic.
func validateOutboundURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrInvalidURL, u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("%w: empty host", ErrInvalidURL)
	}
	ips, err := net.LookupIP(host)
	if err == nil {
		for _, ip := range ips {
			if entity.IsPrivateIP(ip) {
				return fmt.Errorf("%w: %s resolves to %s", ErrPrivateIP, host, ip)
			}
		}
	}
	return nil
}

// Close releases the browser singleton, if one was ever started. The
// Worker calls this at the end of Phase 2 and again during teardown; a
// call with no browser running does nothing.
func (f *Fetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.browser != nil {
		f.browser.close()
		f.browser = nil
	}
}
