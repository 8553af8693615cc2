package extractor

import "testing"

func TestIsPDF(t *testing.T) {
	cases := []struct {
		contentType string
		url         string
		want        bool
	}{
		{"application/pdf", "https://example.com/doc", true},
		{"application/pdf; charset=binary", "https://example.com/doc", true},
		{"text/html", "https://example.com/report.pdf", true},
		{"text/html", "https://example.com/article", false},
	}
	for _, tc := range cases {
		if got := isPDF(tc.contentType, tc.url); got != tc.want {
			t.Errorf("isPDF(%q, %q) = %v, want %v", tc.contentType, tc.url, got, tc.want)
		}
	}
}

func TestBasenameTitle(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://example.com/reports/q3-earnings.pdf", "q3-earnings"},
		{"https://example.com/", ""},
		{"https://example.com", ""},
	}
	for _, tc := range cases {
		if got := basenameTitle(tc.url); got != tc.want {
			t.Errorf("basenameTitle(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

func TestHostOf(t *testing.T) {
	if got := hostOf("https://www.youtube.com/watch?v=x"); got != "www.youtube.com" {
		t.Errorf("hostOf() = %q, want www.youtube.com", got)
	}
	if got := hostOf("not a url"); got != "" {
		t.Errorf("hostOf(%q) = %q, want empty", "not a url", got)
	}
}
