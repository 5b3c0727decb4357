package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shueny/scraping-image/internal/config"
)

// ImageExtractor collects raw image URL candidates from listing HTML.
//
// Listing markup is wildly inconsistent across portals: some render <img>
// tags server-side, some keep gallery URLs in JSON blobs inside script
// blocks, some paint images as CSS backgrounds. No single technique is
// reliable, so four cheap passes run over the same document and their
// results are unioned. The passes trade precision for recall; cleanup is
// the normalizer's job.
type ImageExtractor struct {
	cfg     config.Config
	regexes map[string]*regexp.Regexp
}

func NewImageExtractor(cfg config.Config) *ImageExtractor {
	return &ImageExtractor{
		cfg:     cfg,
		regexes: config.CompileRegexes(),
	}
}

// ExtractCandidates runs every pass over the HTML and unions the results
// into one deduplicated, discovery-ordered candidate list. Candidates are
// raw: escaped, relative, or quoted values are repaired downstream.
func (ie *ImageExtractor) ExtractCandidates(html string) []string {
	seen := make(map[string]bool)
	var candidates []string

	add := func(values []string) {
		for _, v := range values {
			v = strings.TrimSpace(v)
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			candidates = append(candidates, v)
		}
	}

	add(ie.scriptPass(html))
	add(ie.cssPass(html))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		add(ie.attributePass(doc))
		add(ie.inlineStylePass(doc))
	}

	return candidates
}

// scriptPass matches absolute image URLs anywhere in the raw HTML text,
// tolerating backslash-escaped path separators as they appear inside
// serialized JSON in script blocks. Needs no DOM context.
func (ie *ImageExtractor) scriptPass(html string) []string {
	return ie.regexes["scriptImage"].FindAllString(html, -1)
}

// cssPass matches image URLs specifically inside url(...) wrappers,
// optionally quoted, as used by stylesheets and style blocks.
func (ie *ImageExtractor) cssPass(html string) []string {
	matches := ie.regexes["cssImage"].FindAllStringSubmatch(html, -1)
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		if len(m) > 1 {
			urls = append(urls, m[1])
		}
	}
	return urls
}

// attributePass inspects a fixed set of attributes on img, a, and div
// elements. A value is accepted when it looks like an image file or points
// at a known vendor image host.
func (ie *ImageExtractor) attributePass(doc *goquery.Document) []string {
	var urls []string

	doc.Find("img, a, div").Each(func(i int, s *goquery.Selection) {
		for _, attr := range ie.cfg.ScanAttributes {
			val, exists := s.Attr(attr)
			if !exists {
				continue
			}
			val = strings.TrimSpace(val)
			if val == "" {
				continue
			}
			if ie.regexes["imageExt"].MatchString(val) || ie.onVendorHost(val) {
				urls = append(urls, val)
			}
		}
	})

	return urls
}

// inlineStylePass extracts the first url(...) payload of every inline style
// attribute, catching background-image galleries.
func (ie *ImageExtractor) inlineStylePass(doc *goquery.Document) []string {
	var urls []string

	doc.Find("[style]").Each(func(i int, s *goquery.Selection) {
		style, _ := s.Attr("style")
		if !strings.Contains(style, "url(") {
			return
		}
		if m := ie.regexes["inlineURL"].FindStringSubmatch(style); len(m) > 1 {
			urls = append(urls, m[1])
		}
	})

	return urls
}

func (ie *ImageExtractor) onVendorHost(u string) bool {
	for _, host := range ie.cfg.AllowHostSubstrings {
		if strings.Contains(u, host) {
			return true
		}
	}
	return false
}
