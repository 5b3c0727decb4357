// Package scraper implements the extraction pipeline for real-estate
// listing pages: URL validation, HTML acquisition through a fallback chain
// of strategies, heuristic image-candidate extraction, metadata extraction,
// and URL normalization/filtering.
package scraper

import (
	"context"
	"log"
	"time"

	"github.com/shueny/scraping-image/internal/config"
	"github.com/shueny/scraping-image/internal/models"
)

// Scraper runs the full pipeline for one listing URL. Acquisition strategies
// are tried in order — local extraction service, optional headless browser,
// public relay chain — and the first success short-circuits. Failure of the
// local probe is expected (the service is optional) and is logged, not
// surfaced.
type Scraper struct {
	cfg    config.Config
	chain  []Acquirer
	images *ImageExtractor
	meta   *MetadataExtractor
	norm   *Normalizer
}

func New(cfg config.Config) *Scraper {
	chain := []Acquirer{NewLocalServiceAcquirer(cfg)}
	if cfg.UseBrowser {
		chain = append(chain, NewBrowserAcquirer(cfg))
	}
	chain = append(chain, NewRelayChainAcquirer(cfg))

	return &Scraper{
		cfg:    cfg,
		chain:  chain,
		images: NewImageExtractor(cfg),
		meta:   NewMetadataExtractor(cfg.MaxBodyChars),
		norm:   NewNormalizer(cfg),
	}
}

// NewWithChain builds a Scraper with an explicit acquisition chain. Used by
// tests and by callers that need a custom strategy order.
func NewWithChain(cfg config.Config, chain []Acquirer) *Scraper {
	return &Scraper{
		cfg:    cfg,
		chain:  chain,
		images: NewImageExtractor(cfg),
		meta:   NewMetadataExtractor(cfg.MaxBodyChars),
		norm:   NewNormalizer(cfg),
	}
}

// ScrapeListing acquires the page and extracts images and metadata. The
// returned result is complete and immutable; the error is an
// *models.AcquisitionError when every strategy was exhausted.
//
// Both acquisition paths converge on the same output contract: a structured
// payload from the local service skips the heuristic passes but its image
// list still goes through the normalizer/filter, so callers never see
// path-dependent output shapes.
func (s *Scraper) ScrapeListing(ctx context.Context, targetURL string) (models.ListingResult, error) {
	start := time.Now()

	acq, err := s.acquire(ctx, targetURL)
	if err != nil {
		return models.ListingResult{SourceURL: targetURL, Images: []string{}}, err
	}

	var result models.ListingResult
	if acq.Structured {
		result = s.fromStructured(targetURL, acq)
	} else {
		result = s.fromHTML(targetURL, acq.HTML)
	}

	log.Printf("[%s] scraped via %s: %d images, %d body chars (%dms)",
		targetURL, acq.Via, len(result.Images), len(result.BodyText), time.Since(start).Milliseconds())
	return result, nil
}

// acquire walks the strategy chain. Only the last strategy's failure is
// carried into the AcquisitionError; earlier failures are expected fallbacks
// and get logged.
func (s *Scraper) acquire(ctx context.Context, targetURL string) (*models.Extraction, error) {
	var lastErr error

	for _, strategy := range s.chain {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		acq, err := strategy.Acquire(ctx, targetURL)
		if err != nil {
			log.Printf("[%s] %s acquisition failed: %v", targetURL, strategy.Name(), err)
			lastErr = err
			continue
		}
		return acq, nil
	}

	return nil, &models.AcquisitionError{URL: targetURL, Err: lastErr}
}

func (s *Scraper) fromHTML(targetURL, html string) models.ListingResult {
	candidates := s.images.ExtractCandidates(html)
	meta := s.meta.Extract(html)

	return models.ListingResult{
		SourceURL: targetURL,
		Images:    s.norm.Clean(candidates, targetURL),
		Title:     meta.Title,
		BodyText:  meta.BodyText,
		Price:     meta.Price,
	}
}

func (s *Scraper) fromStructured(targetURL string, acq *models.Extraction) models.ListingResult {
	title := acq.Title
	if title == "" {
		title = DefaultTitle
	}

	return models.ListingResult{
		SourceURL: targetURL,
		Images:    s.norm.Clean(acq.Images, targetURL),
		Title:     title,
		BodyText:  truncateRunes(acq.BodyText, s.cfg.MaxBodyChars),
		Price:     acq.Price,
	}
}
