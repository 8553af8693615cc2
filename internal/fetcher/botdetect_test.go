package fetcher

import "testing"

func TestDetectBotProtection(t *testing.T) {
	cases := []struct {
		name string
		html string
		want string
	}{
		{"cloudflare", "<html>Checking your browser before accessing example.com</html>", "Cloudflare bot protection"},
		{"datadome", "<script>window.datadome = {}</script>", "DataDome bot protection"},
		{"perimeterx", "<div id=\"px-captcha\"></div><!--perimeterx-->", "PerimeterX bot protection"},
		{"clean page", "<html><body>ordinary article content</body></html>", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := detectBotProtection(tc.html); got != tc.want {
				t.Errorf("detectBotProtection(%q) = %q, want %q", tc.name, got, tc.want)
			}
		})
	}
}
