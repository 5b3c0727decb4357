package scraper

import (
	"net/url"
	"strings"
)

// IsValidListingURL reports whether s parses as an absolute http(s) URL with
// a host. Pure; no network access. Invalid lines are dropped from the work
// set before any processing begins.
func IsValidListingURL(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// FilterValidURLs keeps the valid lines of a submitted URL list, trimmed and
// deduplicated, preserving submission order.
func FilterValidURLs(lines []string) []string {
	seen := make(map[string]bool, len(lines))
	var out []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if !IsValidListingURL(line) || seen[line] {
			continue
		}
		seen[line] = true
		out = append(out, line)
	}
	return out
}
