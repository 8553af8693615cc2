package fetcher

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
)

// googleNewsAggregatorPattern matches Google News' redirect/tracking URL
// shape; the path segment after it is a base64-ish blob that, for many
// but not all articles, structurally embeds the real article URL.
var googleNewsAggregatorPattern = regexp.MustCompile(`^https?://news\.google\.com/rss/articles/`)

// embeddedURLPattern finds an http(s):// substring inside a decoded blob.
var embeddedURLPattern = regexp.MustCompile(`https?://[^\s"'<>]+`)

// IsAggregatorURL reports whether rawURL matches a known aggregator
// redirect/tracking pattern that ResolveRedirect knows how to unwrap.
func IsAggregatorURL(rawURL string) bool {
	return googleNewsAggregatorPattern.MatchString(rawURL)
}

// ResolveRedirect resolves an aggregator URL to its real target. It first
// attempts structural decoding of the base64 path segment with no network
// I/O; if that does not yield an embedded http(s) URL, it falls back to the
// browser tier and returns the page's final URL after navigation.
//
// Callers must cache the result on Article.ResolvedURL: a second
// processing of the same URL must reuse the cached value rather than
// calling this again.
func (f *Fetcher) ResolveRedirect(ctx context.Context, rawURL string) (string, error) {
	if !IsAggregatorURL(rawURL) {
		return rawURL, nil
	}

	if resolved, ok := decodeEmbeddedURL(rawURL); ok {
		return resolved, nil
	}

	resolveCtx, cancel := context.WithTimeout(ctx, f.cfg.RedirectResolutionTimeout)
	defer cancel()

	page, err := f.navigateBrowser(resolveCtx, rawURL)
	if err != nil {
		return "", fmt.Errorf("resolve aggregator redirect via browser: %w", err)
	}
	return page.FinalURL, nil
}

// decodeEmbeddedURL extracts the base64 segment from a Google News
// aggregator URL and looks for an embedded http(s):// URL inside its
// decoded bytes. Google News' encoding is not a documented format; this is
// a best-effort structural scan, not a full protobuf decode.
func decodeEmbeddedURL(rawURL string) (string, bool) {
	segment := googleNewsAggregatorPattern.ReplaceAllString(rawURL, "")
	segment = strings.SplitN(segment, "?", 2)[0]
	segment = strings.TrimRight(segment, "/")

	for _, decoder := range []*base64.Encoding{base64.URLEncoding, base64.StdEncoding, base64.RawURLEncoding, base64.RawStdEncoding} {
		decoded, err := decoder.DecodeString(segment)
		if err != nil {
			continue
		}
		if match := embeddedURLPattern.Find(decoded); match != nil {
			return string(match), true
		}
	}
	return "", false
}
