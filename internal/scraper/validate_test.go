package scraper

import "testing"

func TestIsValidListingURL(t *testing.T) {
	valid := []string{
		"https://www.property24.com/for-sale/some-listing/12345",
		"http://example.com",
		"  https://example.com/path?x=1  ",
	}
	for _, u := range valid {
		if !IsValidListingURL(u) {
			t.Errorf("expected %q to be valid", u)
		}
	}

	invalid := []string{
		"",
		"not a url",
		"example.com/no-scheme",
		"ftp://example.com/file",
		"https://",
		"/relative/path",
	}
	for _, u := range invalid {
		if IsValidListingURL(u) {
			t.Errorf("expected %q to be invalid", u)
		}
	}
}

func TestFilterValidURLsDropsAndDedupes(t *testing.T) {
	lines := []string{
		"https://example.com/a",
		"garbage",
		"",
		"https://example.com/b",
		"https://example.com/a",
	}

	urls := FilterValidURLs(lines)
	if len(urls) != 2 {
		t.Fatalf("expected 2 urls, got %d: %v", len(urls), urls)
	}
	if urls[0] != "https://example.com/a" || urls[1] != "https://example.com/b" {
		t.Fatalf("unexpected order or content: %v", urls)
	}
}
