package fetcher

import "strings"

// botProtectionFingerprints maps a challenge-page marker string to the
// human-facing reason recorded on BlockedDomain when it matches.
var botProtectionFingerprints = []struct {
	marker string
	reason string
}{
	{"datadome", "DataDome bot protection"},
	{"cf-browser-verification", "Cloudflare bot protection"},
	{"checking your browser before accessing", "Cloudflare bot protection"},
	{"perimeterx", "PerimeterX bot protection"},
	{"_px-captcha", "PerimeterX bot protection"},
	{"distil_r_captcha", "Distil bot protection"},
	{"distil networks", "Distil bot protection"},
	{"access denied", "Akamai bot protection"},
	{"akamai", "Akamai bot protection"},
}

// detectBotProtection scans HTML for known commercial bot-protection
// challenge-page fingerprints, returning the matched reason string, or ""
// if none matched.
func detectBotProtection(html string) string {
	lower := strings.ToLower(html)
	for _, fp := range botProtectionFingerprints {
		if strings.Contains(lower, fp.marker) {
			return fp.reason
		}
	}
	return ""
}
