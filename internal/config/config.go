// Package config holds runtime configuration for the listing scraper:
// acquisition endpoints, timeouts, and the heuristic data (attribute lists,
// deny/allow lists) used by the extraction pipeline. Heuristic data lives
// here rather than inline in the extractor so it can be tuned and tested
// without touching pipeline code.
package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"time"
)

// RelayEndpoint describes one public relay service that fetches a target
// page server-side. Format contains a single %s placeholder for the target
// URL; Encode controls whether the target is query-escaped first.
type RelayEndpoint struct {
	Name   string
	Format string
	Encode bool
}

// Wrap builds the relay request URL for a target page URL.
func (r RelayEndpoint) Wrap(target string) string {
	if r.Encode {
		target = url.QueryEscape(target)
	}
	return fmt.Sprintf(r.Format, target)
}

// Config holds all runtime configuration for the scraper service.
type Config struct {
	// Acquisition
	LocalServiceURL     string
	LocalServiceTimeout time.Duration
	Relays              []RelayEndpoint
	RelayTimeout        time.Duration
	MinHTMLLength       int
	MaxHTMLBytes        int64
	UserAgent           string

	// Optional headless-browser acquisition between the local service and
	// the relay chain.
	UseBrowser     bool
	BrowserTimeout time.Duration
	WindowWidth    int
	WindowHeight   int

	// Extraction heuristics
	ScanAttributes      []string
	DenySubstrings      []string
	AllowHostSubstrings []string
	IconHints           []string
	KeepHint            string
	MaxBodyChars        int

	// Archive building
	ImageRelay    RelayEndpoint
	ImageTimeout  time.Duration
	MaxImageBytes int64

	// Summaries
	SummaryEndpoint        string
	SummaryModel           string
	SummaryKeyEnv          string
	SummaryTimeout         time.Duration
	MaxConcurrentSummaries int
}

// Default returns a Config populated with sensible defaults, overridable
// through environment variables.
func Default() Config {
	cfg := Config{
		LocalServiceURL:     envString("SCRAPER_LOCAL_SERVICE_URL", "http://localhost:3001/extract"),
		LocalServiceTimeout: 3 * time.Second,
		Relays: []RelayEndpoint{
			{Name: "allorigins", Format: "https://api.allorigins.win/raw?url=%s", Encode: true},
			{Name: "corsproxy", Format: "https://corsproxy.io/?%s", Encode: true},
			{Name: "codetabs", Format: "https://api.codetabs.com/v1/proxy?quest=%s", Encode: true},
		},
		RelayTimeout:  8 * time.Second,
		MinHTMLLength: 500,
		MaxHTMLBytes:  10 << 20,
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
			"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",

		UseBrowser:     envBool("SCRAPER_USE_BROWSER", false),
		BrowserTimeout: 60 * time.Second,
		WindowWidth:    1366,
		WindowHeight:   900,

		ScanAttributes: []string{"src", "href", "data-src", "data-url", "data-original", "data-large-img-url"},
		DenySubstrings: []string{"svg", "tracker", "analytics", "facebook", "google", "whatsapp"},
		AllowHostSubstrings: []string{
			"images.prop24.com",
		},
		IconHints:    []string{"icon", "logo"},
		KeepHint:     "property",
		MaxBodyChars: 10000,

		ImageRelay:    RelayEndpoint{Name: "allorigins", Format: "https://api.allorigins.win/raw?url=%s", Encode: true},
		ImageTimeout:  20 * time.Second,
		MaxImageBytes: 25 << 20,

		SummaryEndpoint:        envString("SUMMARY_ENDPOINT", "https://generativelanguage.googleapis.com/v1beta"),
		SummaryModel:           envString("SUMMARY_MODEL", "gemini-1.5-flash"),
		SummaryKeyEnv:          "GEMINI_API_KEY",
		SummaryTimeout:         30 * time.Second,
		MaxConcurrentSummaries: 3,
	}
	return cfg
}

// CompileRegexes compiles the regular expressions shared by the extraction
// passes. Compiled once at construction, keyed by name.
func CompileRegexes() map[string]*regexp.Regexp {
	return map[string]*regexp.Regexp{
		// Absolute image URLs inside raw HTML or serialized JSON in script
		// blocks, tolerating backslash-escaped path separators.
		"scriptImage": regexp.MustCompile(`(?i)https?:(?:\\?/){2}[^\s"'<>()]+?\.(?:jpe?g|png|webp)(?:\?[^\s"'<>()]*)?`),
		// Image URLs wrapped in CSS url(...), optionally quoted.
		"cssImage": regexp.MustCompile(`(?i)url\(\s*['"]?(https?:[^'"()\s]+?\.(?:jpe?g|png|webp)(?:\?[^'"()\s]*)?)['"]?\s*\)`),
		// First url(...) payload of an inline style attribute.
		"inlineURL": regexp.MustCompile(`url\(\s*['"]?([^'")]+?)['"]?\s*\)`),
		// Does a candidate string end in an image extension.
		"imageExt": regexp.MustCompile(`(?i)\.(?:jpe?g|png|webp)(?:[?#]|$)`),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
