// Package archive packages a listing's images into a zip file. Image bytes
// are fetched through a relay to sidestep cross-origin restrictions on the
// hosting CDNs; per-image failures are logged and skipped so the archive is
// always produced from whatever could be fetched.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/shueny/scraping-image/internal/config"
	"github.com/shueny/scraping-image/internal/models"
)

// Builder fetches a listing's images concurrently and writes them into a
// single zip archive.
type Builder struct {
	cfg    config.Config
	client *http.Client
}

func NewBuilder(cfg config.Config) *Builder {
	return &Builder{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.ImageTimeout},
	}
}

// Build fetches every image of the listing and writes the archive to w. The
// return value is the number of images that made it in; a failed fetch is
// omitted, never fatal. Entries are named image_N.<ext> with N being the
// image's position in the listing.
func (b *Builder) Build(ctx context.Context, listing models.ListingResult, w io.Writer) (int, error) {
	fetched := make([][]byte, len(listing.Images))

	g, ctx := errgroup.WithContext(ctx)
	for i, imageURL := range listing.Images {
		i, imageURL := i, imageURL
		g.Go(func() error {
			data, err := b.fetchImage(ctx, imageURL)
			if err != nil {
				log.Printf("archive: skipping image %d (%s): %v", i+1, imageURL, err)
				return nil
			}
			fetched[i] = data
			return nil
		})
	}
	_ = g.Wait()

	zw := zip.NewWriter(w)
	added := 0
	for i, data := range fetched {
		if data == nil {
			continue
		}
		name := fmt.Sprintf("image_%d.%s", i+1, extensionFor(listing.Images[i]))
		f, err := zw.Create(name)
		if err != nil {
			return added, fmt.Errorf("create archive entry %s: %w", name, err)
		}
		if _, err := f.Write(data); err != nil {
			return added, fmt.Errorf("write archive entry %s: %w", name, err)
		}
		added++
	}

	if err := zw.Close(); err != nil {
		return added, fmt.Errorf("finalize archive: %w", err)
	}
	return added, nil
}

func (b *Builder) fetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.cfg.ImageRelay.Wrap(imageURL), nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	req.Header.Set("User-Agent", b.cfg.UserAgent)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("image fetch responded HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, b.cfg.MaxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("read image bytes: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image fetch returned empty body")
	}
	return data, nil
}

// extensionFor infers a file extension from the image URL. jpg is the
// default; png and webp override when the URL mentions them.
func extensionFor(imageURL string) string {
	lower := strings.ToLower(imageURL)
	switch {
	case strings.Contains(lower, "png"):
		return "png"
	case strings.Contains(lower, "webp"):
		return "webp"
	default:
		return "jpg"
	}
}

// Filename derives the archive's download name from the listing title: a
// sanitized prefix with spaces collapsed to underscores.
func Filename(title string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_':
			b.WriteRune('_')
		}
		if b.Len() >= 40 {
			break
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		name = "listing_images"
	}
	return name + ".zip"
}
