// Package main runs the HTTP surface of the listing scraper: it accepts a
// batch of listing URLs, exposes the aggregated results and per-URL
// statuses, serves a zip archive of one listing's images, and generates
// on-demand summaries. API key authentication is handled here.
package main

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/shueny/scraping-image/internal/archive"
	"github.com/shueny/scraping-image/internal/config"
	"github.com/shueny/scraping-image/internal/models"
	"github.com/shueny/scraping-image/internal/scraper"
	"github.com/shueny/scraping-image/internal/service"
	"github.com/shueny/scraping-image/internal/summary"
)

// Server holds the pipeline components and the in-memory session: the
// results of past runs keyed by source URL, discarded when the session is
// cleared.
type Server struct {
	runner    *service.Runner
	board     *service.Board
	archiver  *archive.Builder
	summaries *summary.Client

	apiKeys []string

	mu      sync.RWMutex
	results map[string]models.ListingResult
	runIDs  []string
}

func NewServer(cfg config.Config) *Server {
	board := service.NewBoard()
	return &Server{
		runner:    service.NewRunner(scraper.New(cfg), board),
		board:     board,
		archiver:  archive.NewBuilder(cfg),
		summaries: summary.NewClient(cfg),
		apiKeys:   loadAPIKeys(),
		results:   make(map[string]models.ListingResult),
	}
}

// loadAPIKeys reads comma-separated keys from the environment. No keys
// configured means open access (development mode).
func loadAPIKeys() []string {
	keysStr := os.Getenv("SCRAPER_API_KEYS")
	if keysStr == "" {
		log.Printf("warning: no API keys configured (SCRAPER_API_KEYS not set)")
		return nil
	}
	var keys []string
	for _, key := range strings.Split(keysStr, ",") {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	log.Printf("loaded %d API key(s)", len(keys))
	return keys
}

// validateAPIKey uses constant-time comparison against every configured key.
func (s *Server) validateAPIKey(requestKey string) bool {
	if len(s.apiKeys) == 0 {
		return true
	}
	for _, validKey := range s.apiKeys {
		if subtle.ConstantTimeCompare([]byte(requestKey), []byte(validKey)) == 1 {
			return true
		}
	}
	return false
}

func (s *Server) withCommon(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if !s.validateAPIKey(r.URL.Query().Get("key")) {
			s.errorResponse(w, http.StatusUnauthorized, "Invalid or missing API key")
			return
		}
		next(w, r)
	}
}

// handleScrape accepts either a JSON body {"urls": [...]} or a plain-text
// newline-separated URL list, runs the batch, and returns the aggregate.
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	lines, err := readURLLines(r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	runID, results, statuses := s.runner.Run(r.Context(), lines)

	s.mu.Lock()
	for _, res := range results {
		s.results[res.SourceURL] = res
	}
	s.runIDs = append(s.runIDs, runID)
	s.mu.Unlock()

	s.jsonResponse(w, http.StatusOK, models.ScrapeResponse{
		RunID:    runID,
		Results:  results,
		Statuses: statuses,
	})
}

func readURLLines(r *http.Request) ([]string, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("empty request body")
	}

	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		var req models.ScrapeRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("decode JSON body: %w", err)
		}
		return req.URLs, nil
	}
	return strings.Split(string(body), "\n"), nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run")
	if runID == "" {
		s.errorResponse(w, http.StatusBadRequest, "Missing \"run\" query parameter")
		return
	}
	statuses := s.board.Snapshot(runID)
	if statuses == nil {
		s.errorResponse(w, http.StatusNotFound, "Unknown run")
		return
	}
	s.jsonResponse(w, http.StatusOK, statuses)
}

// handleArchive streams a zip of one scraped listing's images as a download.
// The save action always fires, even when some image fetches failed.
func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	listing, ok := s.lookupResult(w, r)
	if !ok {
		return
	}
	if listing.Error != "" {
		s.errorResponse(w, http.StatusConflict, "Listing failed to scrape; nothing to archive")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", archive.Filename(listing.Title)))

	added, err := s.archiver.Build(r.Context(), listing, w)
	if err != nil {
		// Headers are gone by now; log and let the client see a broken zip.
		log.Printf("archive for %s failed after %d image(s): %v", listing.SourceURL, added, err)
		return
	}
	log.Printf("archived %d/%d image(s) for %s", added, len(listing.Images), listing.SourceURL)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	listing, ok := s.lookupResult(w, r)
	if !ok {
		return
	}

	text := s.summaries.Summarize(r.Context(), listing.SourceURL, listing.BodyText)
	s.jsonResponse(w, http.StatusOK, models.SummaryResponse{
		SourceURL: listing.SourceURL,
		Summary:   text,
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	s.mu.Lock()
	s.results = make(map[string]models.ListingResult)
	runIDs := s.runIDs
	s.runIDs = nil
	s.mu.Unlock()

	for _, id := range runIDs {
		s.board.Drop(id)
	}
	s.summaries.Clear()

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) lookupResult(w http.ResponseWriter, r *http.Request) (models.ListingResult, bool) {
	sourceURL := r.URL.Query().Get("url")
	if sourceURL == "" {
		s.errorResponse(w, http.StatusBadRequest, "Missing \"url\" query parameter")
		return models.ListingResult{}, false
	}

	s.mu.RLock()
	listing, ok := s.results[sourceURL]
	s.mu.RUnlock()
	if !ok {
		s.errorResponse(w, http.StatusNotFound, "URL has not been scraped in this session")
		return models.ListingResult{}, false
	}
	return listing, true
}

func (s *Server) jsonResponse(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, statusCode int, message string) {
	s.jsonResponse(w, statusCode, models.ErrorResponse{Error: message})
}

func main() {
	cfg := config.Default()
	server := NewServer(cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/scrape", server.withCommon(server.handleScrape))
	mux.HandleFunc("/status", server.withCommon(server.handleStatus))
	mux.HandleFunc("/archive", server.withCommon(server.handleArchive))
	mux.HandleFunc("/summary", server.withCommon(server.handleSummary))
	mux.HandleFunc("/session/clear", server.withCommon(server.handleClear))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("starting server on port %s", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Fatalf("server failed to start: %v", err)
	}
}
