// Package service orchestrates scraping across a set of submitted listing
// URLs: it fans acquisition out per URL, tracks per-URL processing status
// through a serialized state board, and aggregates the settled results.
package service

import (
	"context"
	"log"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/shueny/scraping-image/internal/models"
	"github.com/shueny/scraping-image/internal/scraper"
)

// ListingScraper is the per-URL pipeline the runner fans out over.
type ListingScraper interface {
	ScrapeListing(ctx context.Context, targetURL string) (models.ListingResult, error)
}

// Runner launches acquisition for every validated URL concurrently. A
// single URL's failure never aborts its siblings; each failure becomes an
// error-bearing result and an error status, and the user always receives
// the partial successes.
type Runner struct {
	scraper ListingScraper
	board   *Board
}

func NewRunner(s ListingScraper, board *Board) *Runner {
	return &Runner{scraper: s, board: board}
}

// Run validates the submitted lines, drops invalid ones silently, and
// scrapes the rest concurrently. It returns the run ID, the results in
// submission order (error-bearing entries included), and the final status
// list. Results are aggregated only once every URL has settled.
func (r *Runner) Run(ctx context.Context, lines []string) (string, []models.ListingResult, []models.ProcessingStatus) {
	urls := scraper.FilterValidURLs(lines)
	runID := uuid.NewString()
	r.board.Register(runID, urls)

	if len(urls) == 0 {
		return runID, []models.ListingResult{}, []models.ProcessingStatus{}
	}

	log.Printf("run %s: scraping %d listing(s)", runID, len(urls))

	results := make([]models.ListingResult, len(urls))
	g, ctx := errgroup.WithContext(ctx)

	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			r.board.Transition(runID, u, models.StatusLoading, "")

			result, err := r.scraper.ScrapeListing(ctx, u)
			if err != nil {
				log.Printf("run %s: [%s] failed: %v", runID, u, err)
				results[i] = models.ListingResult{SourceURL: u, Images: []string{}, Error: err.Error()}
				r.board.Transition(runID, u, models.StatusError, err.Error())
				return nil
			}

			results[i] = result
			r.board.Transition(runID, u, models.StatusSuccess, "")
			return nil
		})
	}

	// Workers never return errors; Wait is purely the fan-in barrier.
	_ = g.Wait()
	r.board.Flush()

	return runID, results, r.board.Snapshot(runID)
}
