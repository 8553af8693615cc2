// Package fetcher implements the two-tier HTTP retrieval contract: a
// lightweight direct client and a headless-browser fallback with
// bot-evasion settings, plus aggregator-redirect resolution and
// bot-protection detection.
package fetcher

import "time"

// Config holds the tunables for both fetch tiers. cmd/worker builds the
// Fetcher once at start with DefaultConfig; these values are not read
// from the Store's Config row or from the environment.
type Config struct {
	// DirectTimeout bounds the lightweight HTTP GET tier.
	DirectTimeout time.Duration
	// RedirectResolutionTimeout bounds aggregator redirect resolution.
	RedirectResolutionTimeout time.Duration
	// BrowserTimeout bounds a browser-fallback content fetch.
	BrowserTimeout time.Duration
	// MaxBodySize caps the direct tier's response body.
	MaxBodySize int64
	// MaxRedirects caps the direct tier's redirect chain.
	MaxRedirects int
	// UserAgent is sent on the direct tier and set as the browser tier's
	// user-agent override.
	UserAgent string
}

// DefaultConfig returns the timeouts given in the specification's
// concurrency & resource model: direct 15s, redirect resolution 30s,
// browser content fetch 45s.
func DefaultConfig() Config {
	return Config{
		DirectTimeout:             15 * time.Second,
		RedirectResolutionTimeout: 30 * time.Second,
		BrowserTimeout:            45 * time.Second,
		MaxBodySize:               10 * 1024 * 1024,
		MaxRedirects:              5,
		UserAgent:                 "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	}
}
