package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shueny/scraping-image/internal/config"
	"github.com/shueny/scraping-image/internal/models"
)

// Acquirer is one strategy for obtaining a listing page. Strategies are
// tried in a fixed order; the first success short-circuits the chain.
type Acquirer interface {
	Name() string
	Acquire(ctx context.Context, targetURL string) (*models.Extraction, error)
}

// LocalServiceAcquirer probes the optional local extraction service. The
// service runs a full browser engine and returns a pre-extracted payload, so
// its result bypasses the heuristic extraction passes entirely.
type LocalServiceAcquirer struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
}

func NewLocalServiceAcquirer(cfg config.Config) *LocalServiceAcquirer {
	return &LocalServiceAcquirer{
		endpoint: cfg.LocalServiceURL,
		timeout:  cfg.LocalServiceTimeout,
		client:   &http.Client{},
	}
}

func (a *LocalServiceAcquirer) Name() string { return "local-service" }

func (a *LocalServiceAcquirer) Acquire(ctx context.Context, targetURL string) (*models.Extraction, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	reqURL := a.endpoint + "?url=" + url.QueryEscape(targetURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build local service request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("local service request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("local service responded HTTP %d", resp.StatusCode)
	}

	var payload models.Extraction
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode local service payload: %w", err)
	}

	payload.Structured = true
	payload.Via = a.Name()
	return &payload, nil
}

// RelayChainAcquirer tries a sequence of public relay services, each
// wrapping the target URL in its own query-parameter convention. The first
// HTTP-successful response whose body exceeds the minimum length threshold
// wins; short bodies are treated as blocked or empty and skipped.
type RelayChainAcquirer struct {
	relays    []config.RelayEndpoint
	timeout   time.Duration
	minLength int
	maxBytes  int64
	userAgent string
	client    *http.Client
}

func NewRelayChainAcquirer(cfg config.Config) *RelayChainAcquirer {
	return &RelayChainAcquirer{
		relays:    cfg.Relays,
		timeout:   cfg.RelayTimeout,
		minLength: cfg.MinHTMLLength,
		maxBytes:  cfg.MaxHTMLBytes,
		userAgent: cfg.UserAgent,
		client:    &http.Client{},
	}
}

func (a *RelayChainAcquirer) Name() string { return "relay-chain" }

func (a *RelayChainAcquirer) Acquire(ctx context.Context, targetURL string) (*models.Extraction, error) {
	var lastErr error

	for _, relay := range a.relays {
		if ctx.Err() != nil {
			break
		}

		html, err := a.fetchThrough(ctx, relay, targetURL)
		if err != nil {
			lastErr = err
			continue
		}

		return &models.Extraction{HTML: html, Via: relay.Name}, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no relay endpoints configured")
	}
	return nil, fmt.Errorf("all relays exhausted: %w", lastErr)
}

func (a *RelayChainAcquirer) fetchThrough(ctx context.Context, relay config.RelayEndpoint, targetURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, relay.Wrap(targetURL), nil)
	if err != nil {
		return "", fmt.Errorf("relay %s: build request: %w", relay.Name, err)
	}
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("relay %s: %w", relay.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("relay %s: HTTP %d", relay.Name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, a.maxBytes))
	if err != nil {
		return "", fmt.Errorf("relay %s: read body: %w", relay.Name, err)
	}

	if len(body) <= a.minLength {
		return "", fmt.Errorf("relay %s: body too short (%d chars), likely blocked or empty", relay.Name, len(body))
	}

	return string(body), nil
}
