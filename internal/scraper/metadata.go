package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
)

// Metadata is the textual part of a listing: its title, a best-guess price
// string, and a length-capped plain-text body.
type Metadata struct {
	Title    string
	Price    string
	BodyText string
}

// DefaultTitle is used when a page carries no <title> element.
const DefaultTitle = "Untitled"

// nonContentTags are removed before text extraction so chrome and script
// content do not pollute the body text.
const nonContentTags = "script, style, nav, footer, header, noscript, iframe"

var whitespaceRun = regexp.MustCompile(`\s+`)

// MetadataExtractor pulls title, price, and body text out of listing HTML.
type MetadataExtractor struct {
	sanitizer    *bluemonday.Policy
	maxBodyChars int
}

func NewMetadataExtractor(maxBodyChars int) *MetadataExtractor {
	return &MetadataExtractor{
		sanitizer:    bluemonday.StrictPolicy(),
		maxBodyChars: maxBodyChars,
	}
}

// Extract parses the HTML and returns the listing metadata. Non-content
// subtrees are stripped first; whitespace runs collapse to single spaces and
// the body is truncated to the configured cap.
func (me *MetadataExtractor) Extract(html string) Metadata {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Metadata{Title: DefaultTitle}
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = DefaultTitle
	}

	price := me.extractPrice(doc)

	doc.Find(nonContentTags).Remove()
	body := me.collapse(doc.Find("body").Text())
	if body == "" {
		body = me.collapse(me.readableText(html))
	}
	body = truncateRunes(body, me.maxBodyChars)

	return Metadata{
		Title:    me.clean(title),
		Price:    me.clean(price),
		BodyText: body,
	}
}

// extractPrice takes the text of the first element matching the portal's
// price class, falling back to any element whose class mentions price.
func (me *MetadataExtractor) extractPrice(doc *goquery.Document) string {
	if sel := doc.Find(".p24_price").First(); sel.Length() > 0 {
		return strings.TrimSpace(sel.Text())
	}
	if sel := doc.Find("[class*='price']").First(); sel.Length() > 0 {
		return strings.TrimSpace(sel.Text())
	}
	return ""
}

// readableText runs the readability algorithm as a fallback when the
// stripped DOM yields no text, as happens on script-rendered pages whose
// visible content lives in a noscript-less shell.
func (me *MetadataExtractor) readableText(html string) string {
	article, err := readability.FromReader(strings.NewReader(html), nil)
	if err != nil {
		return ""
	}
	return article.TextContent
}

func (me *MetadataExtractor) collapse(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

func (me *MetadataExtractor) clean(s string) string {
	return strings.TrimSpace(me.sanitizer.Sanitize(s))
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
