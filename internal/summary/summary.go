// Package summary generates natural-language summaries of listing text by
// calling an external generative-language endpoint. Failures never escape
// this package: any call problem becomes a fixed user-facing message, and
// empty input short-circuits without a network call.
package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/shueny/scraping-image/internal/config"
	"github.com/shueny/scraping-image/internal/models"
)

const (
	// promptTemplate is the fixed instruction sent ahead of the listing text.
	promptTemplate = "Summarize this property listing in a short, friendly paragraph. " +
		"Mention the price, location, and standout features if present:\n\n"

	// FailureMessage replaces any auth or network error.
	FailureMessage = "AI summary is unavailable right now. Please try again later."

	// EmptyPlaceholder replaces an empty model response.
	EmptyPlaceholder = "No summary could be generated for this listing."
)

// Client calls the generative-language endpoint and caches one summary per
// source URL. Cached entries are never invalidated.
type Client struct {
	cfg        config.Config
	apiKey     string
	httpClient *http.Client
	sem        *semaphore.Weighted

	mu      sync.RWMutex
	entries map[string]models.SummaryEntry
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		apiKey:     os.Getenv(cfg.SummaryKeyEnv),
		httpClient: &http.Client{Timeout: cfg.SummaryTimeout},
		sem:        semaphore.NewWeighted(int64(cfg.MaxConcurrentSummaries)),
		entries:    make(map[string]models.SummaryEntry),
	}
}

// generateContent request/response shapes for the REST endpoint.
type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Summarize returns prose for the listing text, serving from cache when the
// URL was summarized before. Empty input returns an empty string without
// calling out and without recording an entry.
func (c *Client) Summarize(ctx context.Context, sourceURL, text string) string {
	if text == "" {
		return ""
	}

	c.mu.RLock()
	entry, ok := c.entries[sourceURL]
	c.mu.RUnlock()
	if ok {
		return entry.Summary
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return FailureMessage
	}
	defer c.sem.Release(1)

	summary, err := c.generate(ctx, text)
	if err != nil {
		log.Printf("summary: generation failed for %s: %v", sourceURL, err)
		return FailureMessage
	}
	if summary == "" {
		summary = EmptyPlaceholder
	}

	c.mu.Lock()
	c.entries[sourceURL] = models.SummaryEntry{SourceURL: sourceURL, Summary: summary, CreatedAt: time.Now()}
	c.mu.Unlock()

	return summary
}

// Clear discards all cached summaries, used when the session is cleared.
func (c *Client) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]models.SummaryEntry)
	c.mu.Unlock()
}

func (c *Client) generate(ctx context.Context, text string) (string, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		c.cfg.SummaryEndpoint, c.cfg.SummaryModel, c.apiKey)

	payload := generateRequest{
		Contents: []content{{Parts: []part{{Text: promptTemplate + text}}}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("model responded HTTP %d: %s", resp.StatusCode, string(raw))
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return decoded.Candidates[0].Content.Parts[0].Text, nil
}
