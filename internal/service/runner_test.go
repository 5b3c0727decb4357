package service

import (
	"context"
	"strings"
	"testing"

	"github.com/shueny/scraping-image/internal/models"
)

// flakyScraper fails URLs containing "bad" and succeeds on everything else.
type flakyScraper struct{}

func (f *flakyScraper) ScrapeListing(ctx context.Context, targetURL string) (models.ListingResult, error) {
	if strings.Contains(targetURL, "bad") {
		return models.ListingResult{SourceURL: targetURL, Images: []string{}},
			&models.AcquisitionError{URL: targetURL, Err: context.DeadlineExceeded}
	}
	return models.ListingResult{
		SourceURL: targetURL,
		Images:    []string{"https://images.prop24.com/1/a.jpg"},
		Title:     "ok",
		BodyText:  "fine",
	}, nil
}

func TestRunIsolatesFailures(t *testing.T) {
	board := NewBoard()
	defer board.Close()
	runner := NewRunner(&flakyScraper{}, board)

	_, results, statuses := runner.Run(context.Background(), []string{
		"https://site.com/good/1",
		"https://site.com/bad/2",
		"https://site.com/good/3",
	})

	if len(results) != 3 {
		t.Fatalf("expected 3 settled results, got %d", len(results))
	}

	var ok, failed int
	for _, r := range results {
		if r.Error == "" {
			ok++
		} else {
			failed++
			if len(r.Images) != 0 || r.BodyText != "" {
				t.Errorf("error result must be empty, got %+v", r)
			}
		}
	}
	if ok != 2 || failed != 1 {
		t.Fatalf("expected 2 successes and 1 failure, got %d/%d", ok, failed)
	}

	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	var success, errored int
	for _, st := range statuses {
		switch st.State {
		case models.StatusSuccess:
			success++
		case models.StatusError:
			errored++
		default:
			t.Errorf("status %s not terminal: %s", st.SourceURL, st.State)
		}
	}
	if success != 2 || errored != 1 {
		t.Fatalf("expected 2 success / 1 error statuses, got %d/%d", success, errored)
	}

	// The error must land on the URL that failed, regardless of completion order.
	for _, st := range statuses {
		wantErr := strings.Contains(st.SourceURL, "bad")
		if wantErr && st.State != models.StatusError {
			t.Errorf("expected error status for %s, got %s", st.SourceURL, st.State)
		}
		if !wantErr && st.State != models.StatusSuccess {
			t.Errorf("expected success status for %s, got %s", st.SourceURL, st.State)
		}
	}
}

func TestRunDropsInvalidLinesSilently(t *testing.T) {
	board := NewBoard()
	defer board.Close()
	runner := NewRunner(&flakyScraper{}, board)

	_, results, statuses := runner.Run(context.Background(), []string{
		"not a url",
		"",
		"https://site.com/good/1",
	})

	if len(results) != 1 {
		t.Fatalf("expected invalid lines dropped, got %d results", len(results))
	}
	if len(statuses) != 1 || statuses[0].SourceURL != "https://site.com/good/1" {
		t.Fatalf("status set must equal the validated input set, got %v", statuses)
	}
}

func TestRunEmptyInput(t *testing.T) {
	board := NewBoard()
	defer board.Close()
	runner := NewRunner(&flakyScraper{}, board)

	runID, results, statuses := runner.Run(context.Background(), nil)
	if runID == "" {
		t.Error("expected a run ID even for an empty run")
	}
	if len(results) != 0 || len(statuses) != 0 {
		t.Fatalf("expected empty aggregates, got %v / %v", results, statuses)
	}
}

func TestBoardSerializesOverlappingRuns(t *testing.T) {
	board := NewBoard()
	defer board.Close()

	board.Register("run-a", []string{"https://a.com/1"})
	board.Register("run-b", []string{"https://a.com/1"})

	board.Transition("run-a", "https://a.com/1", models.StatusSuccess, "")
	board.Transition("run-b", "https://a.com/1", models.StatusError, "boom")
	board.Flush()

	a := board.Snapshot("run-a")
	b := board.Snapshot("run-b")
	if a[0].State != models.StatusSuccess {
		t.Errorf("run-a status clobbered: %v", a[0])
	}
	if b[0].State != models.StatusError || b[0].Message != "boom" {
		t.Errorf("run-b status wrong: %v", b[0])
	}
}

func TestBoardIgnoresTransitionsAfterTerminal(t *testing.T) {
	board := NewBoard()
	defer board.Close()

	board.Register("run", []string{"https://a.com/1"})
	board.Transition("run", "https://a.com/1", models.StatusError, "failed")
	board.Transition("run", "https://a.com/1", models.StatusLoading, "")
	board.Flush()

	got := board.Snapshot("run")[0]
	if got.State != models.StatusError {
		t.Fatalf("terminal state must not regress, got %s", got.State)
	}
}
