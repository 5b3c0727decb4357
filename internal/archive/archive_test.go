package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shueny/scraping-image/internal/config"
	"github.com/shueny/scraping-image/internal/models"
)

func testBuilder(t *testing.T, handler http.HandlerFunc) *Builder {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	cfg := config.Default()
	cfg.ImageRelay = config.RelayEndpoint{Name: "test", Format: ts.URL + "/?url=%s", Encode: true}
	return NewBuilder(cfg)
}

func TestBuildSkipsFailedImages(t *testing.T) {
	b := testBuilder(t, func(w http.ResponseWriter, r *http.Request) {
		target := r.URL.Query().Get("url")
		if strings.Contains(target, "broken") {
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		w.Write([]byte("jpeg-bytes"))
	})

	listing := models.ListingResult{
		SourceURL: "https://site.com/listing/1",
		Title:     "Sea View Apartment",
		Images: []string{
			"https://images.prop24.com/1/ok.jpg",
			"https://images.prop24.com/1/broken.jpg",
		},
	}

	var buf bytes.Buffer
	added, err := b.Build(context.Background(), listing, &buf)
	if err != nil {
		t.Fatalf("build must not fail wholesale: %v", err)
	}
	if added != 1 {
		t.Fatalf("expected 1 archived image, got %d", added)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("produced archive unreadable: %v", err)
	}
	if len(zr.File) != 1 {
		t.Fatalf("expected exactly 1 file in archive, got %d", len(zr.File))
	}
	if zr.File[0].Name != "image_1.jpg" {
		t.Errorf("unexpected entry name %q", zr.File[0].Name)
	}
}

func TestBuildProducesArchiveEvenWhenAllFail(t *testing.T) {
	b := testBuilder(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})

	listing := models.ListingResult{
		SourceURL: "https://site.com/listing/1",
		Images:    []string{"https://images.prop24.com/1/a.jpg"},
	}

	var buf bytes.Buffer
	added, err := b.Build(context.Background(), listing, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if added != 0 {
		t.Fatalf("expected 0 archived images, got %d", added)
	}
	if _, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len())); err != nil {
		t.Fatalf("empty archive still must be valid: %v", err)
	}
}

func TestExtensionInference(t *testing.T) {
	cases := map[string]string{
		"https://cdn.example.com/a.jpg":        "jpg",
		"https://cdn.example.com/a":            "jpg",
		"https://cdn.example.com/a.png?x=1":    "png",
		"https://cdn.example.com/a.webp":       "webp",
		"https://cdn.example.com/render?f=png": "png",
	}
	for u, want := range cases {
		if got := extensionFor(u); got != want {
			t.Errorf("extensionFor(%q) = %q, want %q", u, got, want)
		}
	}
}

func TestFilename(t *testing.T) {
	if got := Filename("Sea View Apartment, Clifton!"); got != "Sea_View_Apartment_Clifton.zip" {
		t.Errorf("unexpected filename %q", got)
	}
	if got := Filename("   "); got != "listing_images.zip" {
		t.Errorf("expected fallback name, got %q", got)
	}
}
