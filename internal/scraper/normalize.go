package scraper

import (
	"net/url"
	"strings"

	"github.com/shueny/scraping-image/internal/config"
)

// Normalizer repairs raw candidate URLs and filters the repaired set. The
// extraction passes deliberately over-collect, so precision is recovered
// here: first each candidate is mended (escaping, quoting, relative paths),
// then known-junk and non-image URLs are dropped.
type Normalizer struct {
	cfg config.Config
}

func NewNormalizer(cfg config.Config) *Normalizer {
	return &Normalizer{cfg: cfg}
}

// Clean repairs every candidate against the page's base URL and filters the
// result. Output is deduplicated and keeps discovery order. Candidates that
// cannot be repaired are dropped silently.
func (n *Normalizer) Clean(candidates []string, baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}

	seen := make(map[string]bool, len(candidates))
	var out []string

	for _, raw := range candidates {
		resolved, ok := n.repair(raw, base)
		if !ok || !n.keep(resolved) || seen[resolved] {
			continue
		}
		seen[resolved] = true
		out = append(out, resolved)
	}

	return out
}

// repair mends one raw candidate: strips wrapping quotes left over from
// naive text extraction, removes backslash escaping from serialized JSON,
// expands protocol-relative URLs, and resolves the result against the base.
func (n *Normalizer) repair(raw string, base *url.URL) (string, bool) {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, `"'`)
	s = strings.ReplaceAll(s, `\`, "")
	if strings.HasPrefix(s, "//") {
		s = "https:" + s
	}
	if s == "" {
		return "", false
	}

	rel, err := url.Parse(s)
	if err != nil {
		return "", false
	}
	if base != nil {
		rel = base.ResolveReference(rel)
	}
	return rel.String(), true
}

// keep applies the filter rules to a repaired absolute URL:
//   - http(s) only;
//   - denylisted substrings (trackers, social widgets, vector assets) drop
//     the URL outright;
//   - known vendor image hosts are kept unconditionally, bypassing the
//     icon/logo check;
//   - everything else is dropped when it looks like an icon or logo, unless
//     the URL also mentions the property itself.
func (n *Normalizer) keep(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}

	lower := strings.ToLower(u)
	for _, deny := range n.cfg.DenySubstrings {
		if strings.Contains(lower, deny) {
			return false
		}
	}

	for _, host := range n.cfg.AllowHostSubstrings {
		if strings.Contains(lower, host) {
			return true
		}
	}

	for _, hint := range n.cfg.IconHints {
		if strings.Contains(lower, hint) && !strings.Contains(lower, n.cfg.KeepHint) {
			return false
		}
	}

	return true
}
