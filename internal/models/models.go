// Package models defines the data structures shared across the scraping
// pipeline: per-listing results, per-URL processing status, summaries, and
// the request/response envelopes of the HTTP surface.
package models

import (
	"fmt"
	"time"
)

// ListingResult holds everything extracted from a single listing URL. It is
// created once per processed URL and never mutated afterwards. A result with
// a non-empty Error carries no images and no body text.
type ListingResult struct {
	SourceURL string   `json:"sourceUrl"`
	Images    []string `json:"images"`
	Title     string   `json:"title,omitempty"`
	BodyText  string   `json:"bodyText,omitempty"`
	Price     string   `json:"price,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// StatusState is the lifecycle state of one submitted URL.
type StatusState string

const (
	StatusPending StatusState = "pending"
	StatusLoading StatusState = "loading"
	StatusSuccess StatusState = "success"
	StatusError   StatusState = "error"
)

// Terminal reports whether the state will not change again.
func (s StatusState) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}

// ProcessingStatus tracks acquisition progress for one submitted URL within
// one scrape run.
type ProcessingStatus struct {
	SourceURL string      `json:"sourceUrl"`
	State     StatusState `json:"state"`
	Message   string      `json:"message,omitempty"`
}

// SummaryEntry caches a generated summary, keyed by source URL. Entries are
// created on demand and never invalidated.
type SummaryEntry struct {
	SourceURL string    `json:"sourceUrl"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"createdAt"`
}

// Extraction is what an acquisition strategy hands to the pipeline. When
// Structured is true the strategy already extracted images and metadata (the
// local service runs a full browser engine) and the heuristic passes are
// skipped; the candidate URLs still go through the normalizer so both paths
// produce the same output contract.
type Extraction struct {
	HTML     string   `json:"html,omitempty"`
	Images   []string `json:"images"`
	Title    string   `json:"title,omitempty"`
	BodyText string   `json:"text,omitempty"`
	Price    string   `json:"price,omitempty"`

	Structured bool   `json:"-"`
	Via        string `json:"-"`
}

// AcquisitionError reports that every acquisition strategy was exhausted for
// a URL. It wraps the last underlying error.
type AcquisitionError struct {
	URL string
	Err error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquisition failed for %s: %v", e.URL, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// ScrapeRequest is the incoming scrape request: one or more listing URLs.
type ScrapeRequest struct {
	URLs []string `json:"urls"`
}

// ScrapeResponse carries the aggregate of one scrape run.
type ScrapeResponse struct {
	RunID    string             `json:"runId"`
	Results  []ListingResult    `json:"results"`
	Statuses []ProcessingStatus `json:"statuses"`
}

// SummaryResponse carries one generated summary.
type SummaryResponse struct {
	SourceURL string `json:"sourceUrl"`
	Summary   string `json:"summary"`
}

// ErrorResponse represents error responses from the HTTP surface.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
