package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shueny/scraping-image/internal/config"
	"github.com/shueny/scraping-image/internal/models"
)

func relayTestConfig(relays []config.RelayEndpoint) config.Config {
	cfg := config.Default()
	cfg.Relays = relays
	cfg.RelayTimeout = 2 * time.Second
	return cfg
}

func TestLocalServiceAcquirerParsesStructuredPayload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("url"); got != "https://site.com/listing/1" {
			t.Errorf("expected target url query param, got %q", got)
		}
		w.Write([]byte(`{"images":["https://images.prop24.com/1/a.jpg"],"title":"Nice house","text":"Sunny","price":"R 1"}`))
	}))
	defer ts.Close()

	cfg := config.Default()
	cfg.LocalServiceURL = ts.URL
	a := NewLocalServiceAcquirer(cfg)

	acq, err := a.Acquire(context.Background(), "https://site.com/listing/1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acq.Structured {
		t.Error("local service result must be marked structured")
	}
	if acq.Title != "Nice house" || acq.Price != "R 1" || len(acq.Images) != 1 {
		t.Errorf("payload not parsed: %+v", acq)
	}
}

func TestRelayChainRejectsShortBodies(t *testing.T) {
	longHTML := "<html>" + strings.Repeat("x", 600) + "</html>"

	short := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("blocked"))
	}))
	defer short.Close()

	long := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(longHTML))
	}))
	defer long.Close()

	cfg := relayTestConfig([]config.RelayEndpoint{
		{Name: "short", Format: short.URL + "/?url=%s", Encode: true},
		{Name: "long", Format: long.URL + "/?url=%s", Encode: true},
	})
	a := NewRelayChainAcquirer(cfg)

	acq, err := a.Acquire(context.Background(), "https://site.com/listing/1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acq.Via != "long" {
		t.Errorf("expected the second relay to win, got %q", acq.Via)
	}
	if acq.HTML != longHTML {
		t.Errorf("unexpected HTML body")
	}
}

func TestRelayChainExhaustionCarriesLastError(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer failing.Close()

	cfg := relayTestConfig([]config.RelayEndpoint{
		{Name: "first", Format: failing.URL + "/a?url=%s", Encode: true},
		{Name: "second", Format: failing.URL + "/b?url=%s", Encode: true},
	})
	a := NewRelayChainAcquirer(cfg)

	_, err := a.Acquire(context.Background(), "https://site.com/listing/1")
	if err == nil {
		t.Fatal("expected error after exhausting all relays")
	}
	if !strings.Contains(err.Error(), "second") {
		t.Errorf("expected last relay's error to be carried, got %v", err)
	}
}

// stubAcquirer lets pipeline tests control acquisition outcomes directly.
type stubAcquirer struct {
	name string
	acq  *models.Extraction
	err  error
}

func (s *stubAcquirer) Name() string { return s.name }

func (s *stubAcquirer) Acquire(ctx context.Context, targetURL string) (*models.Extraction, error) {
	return s.acq, s.err
}

func TestScrapeListingFallsThroughFailedStrategies(t *testing.T) {
	html := `<title>Listing</title><body>
		<img src="https://images.prop24.com/9/main.jpg">
		<p>Big garden</p>
	</body>`

	s := NewWithChain(config.Default(), []Acquirer{
		&stubAcquirer{name: "local-service", err: errors.New("connection refused")},
		&stubAcquirer{name: "relay-chain", acq: &models.Extraction{HTML: html, Via: "relay-chain"}},
	})

	result, err := s.ScrapeListing(context.Background(), "https://site.com/listing/9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Title != "Listing" {
		t.Errorf("expected title from heuristic extraction, got %q", result.Title)
	}
	if !containsString(result.Images, "https://images.prop24.com/9/main.jpg") {
		t.Errorf("expected image extracted and normalized, got %v", result.Images)
	}
	if !strings.Contains(result.BodyText, "Big garden") {
		t.Errorf("expected body text, got %q", result.BodyText)
	}
}

func TestScrapeListingNormalizesStructuredPath(t *testing.T) {
	s := NewWithChain(config.Default(), []Acquirer{
		&stubAcquirer{name: "local-service", acq: &models.Extraction{
			Images: []string{
				`https:\/\/images.prop24.com\/9\/a.jpg`,
				"https://cdn.facebook.com/share.jpg",
			},
			Title:      "Pre-extracted",
			BodyText:   "Lovely",
			Structured: true,
			Via:        "local-service",
		}},
	})

	result, err := s.ScrapeListing(context.Background(), "https://site.com/listing/9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Structured results still pass through the normalizer/filter so both
	// acquisition paths share one output contract.
	if len(result.Images) != 1 || result.Images[0] != "https://images.prop24.com/9/a.jpg" {
		t.Fatalf("expected structured images normalized and filtered, got %v", result.Images)
	}
}

func TestScrapeListingReturnsAcquisitionError(t *testing.T) {
	s := NewWithChain(config.Default(), []Acquirer{
		&stubAcquirer{name: "local-service", err: errors.New("refused")},
		&stubAcquirer{name: "relay-chain", err: errors.New("all relays exhausted")},
	})

	result, err := s.ScrapeListing(context.Background(), "https://site.com/listing/9")
	if err == nil {
		t.Fatal("expected acquisition error")
	}
	var acqErr *models.AcquisitionError
	if !errors.As(err, &acqErr) {
		t.Fatalf("expected *models.AcquisitionError, got %T", err)
	}
	if len(result.Images) != 0 || result.BodyText != "" {
		t.Errorf("failed result must carry no content: %+v", result)
	}
}
