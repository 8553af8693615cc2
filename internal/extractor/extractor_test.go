package extractor_test

import (
	"errors"
	"strings"
	"testing"

	"feedcrawler/internal/extractor"
	"feedcrawler/internal/fetcher"
)

func TestExtract_HTML(t *testing.T) {
	html := `<html><head><title>My Article Title</title>
<meta property="og:image" content="https://example.com/lead.jpg">
</head><body><article><p>` +
		strings.Repeat("This is a long enough paragraph of article body text. ", 5) +
		`</p></article></body></html>`

	fr := &fetcher.Result{Bytes: []byte(html), ContentType: "text/html; charset=utf-8", FinalURL: "https://example.com/article/1"}
	res, err := extractor.Extract(fr, "https://example.com/article/1")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.Title != "My Article Title" {
		t.Errorf("Title = %q, want %q", res.Title, "My Article Title")
	}
	if !strings.Contains(res.Text, "long enough paragraph") {
		t.Errorf("Text does not contain expected body: %q", res.Text)
	}
	if res.FinalURL != "https://example.com/article/1" {
		t.Errorf("FinalURL = %q, want passthrough", res.FinalURL)
	}
}

func TestExtract_HTMLBelowMinLengthFails(t *testing.T) {
	html := `<html><head><title>Too Short</title></head><body><p>short</p></body></html>`
	fr := &fetcher.Result{Bytes: []byte(html), ContentType: "text/html", FinalURL: "https://example.com/a"}
	_, err := extractor.Extract(fr, "https://example.com/a")
	if !errors.Is(err, extractor.ErrExtractionFailed) {
		t.Errorf("expected ErrExtractionFailed, got %v", err)
	}
}

func TestExtract_VideoHostSynthesizesFromMeta(t *testing.T) {
	html := `<html><head><title>A Great Video</title>
<meta name="description" content="A description of the video content, long enough to matter.">
<meta property="og:image" content="https://i.ytimg.com/vi/x/thumb.jpg">
</head><body></body></html>`

	fr := &fetcher.Result{Bytes: []byte(html), ContentType: "text/html", FinalURL: "https://www.youtube.com/watch?v=abc123"}
	res, err := extractor.Extract(fr, "https://www.youtube.com/watch?v=abc123")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.Title != "A Great Video" {
		t.Errorf("Title = %q, want %q", res.Title, "A Great Video")
	}
	if !strings.Contains(res.Text, "Description:") {
		t.Errorf("expected synthesized description marker, got %q", res.Text)
	}
	if res.ImageURL != "https://i.ytimg.com/vi/x/thumb.jpg" {
		t.Errorf("ImageURL = %q, want thumbnail URL", res.ImageURL)
	}
}

func TestExtract_PDFContentTypeDispatchesAndFailsOnGarbage(t *testing.T) {
	fr := &fetcher.Result{Bytes: []byte("not a real pdf"), ContentType: "application/pdf", FinalURL: "https://example.com/doc.pdf"}
	_, err := extractor.Extract(fr, "https://example.com/doc.pdf")
	if !errors.Is(err, extractor.ErrExtractionFailed) {
		t.Errorf("expected ErrExtractionFailed for malformed PDF bytes, got %v", err)
	}
}
