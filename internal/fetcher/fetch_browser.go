package fetcher

import (
	"context"
	"fmt"

	"feedcrawler/internal/domain/entity"
)

// fetchViaBrowser drives the headless-browser fallback tier: navigate,
// scan for bot-protection fingerprints, and return the page as an HTML
// Result. A bot-protection match blocks the host and fails the request.
func (f *Fetcher) fetchViaBrowser(ctx context.Context, rawURL string) (*Result, error) {
	page, err := f.navigateBrowser(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("browser fetch: %w", err)
	}

	if reason := detectBotProtection(page.HTML); reason != "" {
		host := entity.HostOf(page.FinalURL, "")
		if host == "" {
			host = entity.HostOf(rawURL, "")
		}
		if f.blocklist != nil {
			if blockErr := f.blocklist.Block(ctx, host, reason); blockErr != nil {
				return nil, fmt.Errorf("%w (failed to persist block: %v)", ErrBotProtection, blockErr)
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrBotProtection, reason)
	}

	return &Result{
		Bytes:       []byte(page.HTML),
		ContentType: "text/html; charset=utf-8",
		FinalURL:    page.FinalURL,
	}, nil
}

// FetchFeedBody navigates to feedURL with the browser tier and returns the
// rendered page body. Used by feedcollector.Collector as the fallback when
// a direct gofeed parse fails, e.g. a feed host that blocks non-browser
// clients.
func (f *Fetcher) FetchFeedBody(ctx context.Context, feedURL string) (string, error) {
	page, err := f.navigateBrowser(ctx, feedURL)
	if err != nil {
		return "", fmt.Errorf("browser feed fetch: %w", err)
	}
	return page.HTML, nil
}
