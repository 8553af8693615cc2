package fetcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// defaultConsentTimeout bounds how long we wait for a single consent
// selector to appear before moving on to the next candidate.
const defaultConsentTimeout = 2 * time.Second

// consentSelectors are clicked opportunistically after navigation to
// dismiss common cookie/consent overlays that would otherwise occlude the
// article body.
var consentSelectors = []string{
	"#onetrust-accept-btn-handler",
	"button[aria-label='Accept all']",
	"button[aria-label='Accept All']",
	".fc-cta-consent",
	"button#didomi-notice-agree-button",
}

// stealthScript hides the most common headless-browser fingerprints that
// bot-protection services check for before the page's own scripts run.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
window.chrome = window.chrome || { runtime: {} };
Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
`

// browser is a lazy, process-wide headless Chromium handle. It is rebuilt
// on disconnect (the caller detects this via a failed navigation and calls
// reset, which causes the next fetch to relaunch).
type browser struct {
	launcher *launcher.Launcher
	instance *rod.Browser
}

func newBrowser() (*browser, error) {
	var l *launcher.Launcher
	if path, has := launcher.LookPath(); has {
		l = launcher.New().Bin(path)
	} else {
		l = launcher.New()
	}
	l = l.Headless(true).NoSandbox(true)

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	instance := rod.New().ControlURL(controlURL)
	if err := instance.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	return &browser{launcher: l, instance: instance}, nil
}

func (b *browser) close() {
	if b.instance != nil {
		_ = b.instance.Close()
	}
	if b.launcher != nil {
		b.launcher.Kill()
	}
}

// browserPage describes the outcome of navigating to a URL with an
// isolated browser context.
type browserPage struct {
	HTML     string
	FinalURL string
}

// navigateBrowser opens a fresh incognito context (isolated cookies/storage per
// request), sets a realistic UA/locale/viewport, runs the stealth script
// before any page script executes, waits for network to settle,
// opportunistically dismisses consent dialogs, scrolls halfway to trigger
// lazy-loaded content, and returns the resulting HTML and final URL.
func (f *Fetcher) navigateBrowser(ctx context.Context, rawURL string) (*browserPage, error) {
	f.mu.Lock()
	if f.browser == nil {
		b, err := newBrowser()
		if err != nil {
			f.mu.Unlock()
			return nil, err
		}
		f.browser = b
	}
	b := f.browser
	f.mu.Unlock()

	browserCtx, cancel := context.WithTimeout(ctx, f.cfg.BrowserTimeout)
	defer cancel()

	incognito, err := b.instance.Context(browserCtx).Incognito()
	if err != nil {
		f.resetBrowserOnDisconnect(err)
		return nil, fmt.Errorf("create isolated context: %w", err)
	}
	defer func() { _ = incognito.Close() }()

	if err := incognito.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      f.cfg.UserAgent,
		AcceptLanguage: "en-US,en;q=0.9",
		Platform:       "Win32",
	}); err != nil {
		return nil, fmt.Errorf("set user agent: %w", err)
	}

	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		f.resetBrowserOnDisconnect(err)
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer func() { _ = page.Close() }()

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width: 1366, Height: 768, DeviceScaleFactor: 1,
	}); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	if _, err := page.EvalOnNewDocument(stealthScript); err != nil {
		return nil, fmt.Errorf("install stealth script: %w", err)
	}

	if err := page.Navigate(rawURL); err != nil {
		f.resetBrowserOnDisconnect(err)
		return nil, fmt.Errorf("navigate: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}
	_ = page.WaitIdle(f.cfg.BrowserTimeout)

	clickConsentButtons(page)

	_, _ = page.Eval(`() => window.scrollTo(0, document.body.scrollHeight / 2)`)
	_ = page.WaitIdle(f.cfg.BrowserTimeout)

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("read html: %w", err)
	}

	info, err := page.Info()
	finalURL := rawURL
	if err == nil && info != nil && info.URL != "" {
		finalURL = info.URL
	}

	return &browserPage{HTML: html, FinalURL: finalURL}, nil
}

// clickConsentButtons clicks the first matching consent selector, if any.
// Failure to find or click one is not an error: most pages have none.
func clickConsentButtons(page *rod.Page) {
	for _, sel := range consentSelectors {
		el, err := page.Timeout(defaultConsentTimeout).Element(sel)
		if err != nil || el == nil {
			continue
		}
		_ = el.Click(proto.InputMouseButtonLeft, 1)
		return
	}
}

// resetBrowserOnDisconnect tears down the shared browser singleton so the
// next fetch relaunches it, if the error indicates the browser connection
// itself was lost (as opposed to a per-page failure).
func (f *Fetcher) resetBrowserOnDisconnect(err error) {
	if err == nil || !strings.Contains(err.Error(), "has been closed") {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.browser != nil {
		f.browser.close()
		f.browser = nil
	}
}
