package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF decodes PDF bytes, requiring non-empty text. Title comes from
// the PDF's Info dictionary, falling back to the URL path's basename; if
// neither yields a title, extraction fails.
func extractPDF(body []byte, finalURL string) (*Result, error) {
	reader, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil, ErrExtractionFailed
	}

	title := pdfTitle(reader)
	if title == "" {
		title = basenameTitle(finalURL)
	}
	if title == "" {
		return nil, ErrExtractionFailed
	}

	return &Result{
		Title:    title,
		Text:     text,
		FinalURL: finalURL,
	}, nil
}

// pdfTitle reads the Title entry of the PDF's Info dictionary, if present.
func pdfTitle(reader *pdf.Reader) string {
	defer func() { _ = recover() }() // malformed Info dictionaries must not crash extraction
	info := reader.Trailer().Key("Info")
	if info.IsNull() {
		return ""
	}
	return strings.TrimSpace(info.Key("Title").Text())
}
