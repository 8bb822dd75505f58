package auth

import "strings"

// Fingerprint derives the device identity used for trusted-device checks
// from a request's User-Agent header. Comparison against stored fingerprints
// is exact, so the value is only trimmed.
func Fingerprint(userAgent string) string {
	return strings.TrimSpace(userAgent)
}
