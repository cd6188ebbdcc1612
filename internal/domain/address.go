package domain

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	addressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	embeddedRe = regexp.MustCompile(`0x[0-9a-fA-F]{40}`)
)

// IsAddress reports whether s is a valid 0x-prefixed 40-hex-digit address.
// The engine never sends anything failing this check to the lookup endpoint.
func IsAddress(s string) bool {
	return addressRe.MatchString(strings.TrimSpace(s))
}

// ExtractAddress salvages an address out of whatever the user pasted:
// a bare address, an explorer URL, "base:0x..." etc. Returns the lowercased
// address or "" when none is embedded.
func ExtractAddress(input string) string {
	cleaned := input
	if dec, err := url.QueryUnescape(input); err == nil {
		cleaned = dec
	}
	cleaned = strings.TrimRight(strings.Join(strings.Fields(cleaned), ""), "/")

	if m := embeddedRe.FindString(cleaned); m != "" {
		return strings.ToLower(m)
	}
	return ""
}

// NormalizeAddress lowercases a trimmed address for use as a map or store key
func NormalizeAddress(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
