// Package extractor converts a fetched payload (HTML, PDF, or a known
// video-host page) into {title, text, image_url, final_url}, rejecting
// payloads below the minimum text threshold. Extraction never retries;
// failure surfaces as entity.ErrorKindReadabilityFailed.
package extractor

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"feedcrawler/internal/fetcher"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// ErrExtractionFailed is returned whenever the payload cannot be turned
// into readable content meeting the minimum thresholds below.
var ErrExtractionFailed = errors.New("could not extract readable text from page")

// minHTMLTextLength is the minimum extracted-text length for the HTML path.
const minHTMLTextLength = 50

// Result is the normalized output of extraction.
type Result struct {
	Title    string
	Text     string
	ImageURL string
	FinalURL string
}

// videoHosts are dispatched to the synthetic video-page extraction path.
var videoHosts = map[string]bool{
	"youtube.com":     true,
	"www.youtube.com": true,
	"youtu.be":        true,
}

// Extract dispatches on content-type/URL shape to the PDF, video-host, or
// HTML extraction path.
func Extract(fr *fetcher.Result, requestURL string) (*Result, error) {
	finalURL := fr.FinalURL
	if finalURL == "" {
		finalURL = requestURL
	}

	if isPDF(fr.ContentType, finalURL) {
		return extractPDF(fr.Bytes, finalURL)
	}

	if host := hostOf(finalURL); videoHosts[host] {
		if res, ok := extractVideoPage(fr.Bytes, finalURL); ok {
			return res, nil
		}
		// Fall through to the generic HTML path if the video-specific
		// synthesis fails to find both a title and description.
	}

	return extractHTML(fr.Bytes, finalURL)
}

func isPDF(contentType, finalURL string) bool {
	if strings.Contains(strings.ToLower(contentType), "application/pdf") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(finalURL), ".pdf")
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func extractHTML(body []byte, finalURL string) (*Result, error) {
	parsed, err := url.Parse(finalURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	article, err := readability.FromReader(strings.NewReader(string(body)), parsed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	text := article.TextContent
	if text == "" {
		text = article.Content
	}
	if article.Title == "" || len(text) < minHTMLTextLength {
		return nil, ErrExtractionFailed
	}

	image := article.Image
	if image == "" {
		image = metaImage(body, parsed)
	}

	return &Result{
		Title:    article.Title,
		Text:     text,
		ImageURL: image,
		FinalURL: finalURL,
	}, nil
}

// metaImage reads og:image / twitter:image from the raw HTML as a
// fallback when go-readability didn't surface a lead image.
func metaImage(body []byte, base *url.URL) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return ""
	}
	for _, sel := range []string{`meta[property="og:image"]`, `meta[name="twitter:image"]`} {
		if content, ok := doc.Find(sel).First().Attr("content"); ok && content != "" {
			if u, err := url.Parse(content); err == nil {
				if !u.IsAbs() && base != nil {
					u = base.ResolveReference(u)
				}
				return u.String()
			}
			return content
		}
	}
	return ""
}

// extractVideoPage synthesizes content from a video host's <title> and
// description meta tag: "{title}\n\nDescription:\n{description}". Returns
// ok=false if either is missing, so the caller falls through to the
// generic HTML path.
func extractVideoPage(body []byte, finalURL string) (*Result, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, false
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	description, _ := doc.Find(`meta[name="description"]`).First().Attr("content")
	description = strings.TrimSpace(description)

	if title == "" || description == "" {
		return nil, false
	}

	text := fmt.Sprintf("%s\n\nDescription:\n%s", title, description)
	image, _ := doc.Find(`meta[property="og:image"]`).First().Attr("content")

	return &Result{
		Title:    title,
		Text:     text,
		ImageURL: image,
		FinalURL: finalURL,
	}, true
}

// basenameTitle derives a fallback PDF title from the URL's path basename,
// used when the PDF has no Title in its metadata.
func basenameTitle(finalURL string) string {
	u, err := url.Parse(finalURL)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}
