package service

import (
	"sync"

	"github.com/shueny/scraping-image/internal/models"
)

// statusUpdate is one immutable state transition for a URL within a run.
type statusUpdate struct {
	runID     string
	sourceURL string
	state     models.StatusState
	message   string

	// ack, when set, marks a barrier: the applier closes it once every
	// update sent before it has been applied.
	ack chan struct{}
}

// Board owns all per-run processing statuses. Every transition flows through
// a single channel consumed by one goroutine, so overlapping scrape runs
// serialize their updates instead of racing on shared state. Reads take a
// snapshot under the lock the applier holds while mutating.
type Board struct {
	updates chan statusUpdate
	done    chan struct{}

	mu    sync.RWMutex
	runs  map[string]map[string]*models.ProcessingStatus
	order map[string][]string
}

func NewBoard() *Board {
	b := &Board{
		updates: make(chan statusUpdate, 64),
		done:    make(chan struct{}),
		runs:    make(map[string]map[string]*models.ProcessingStatus),
		order:   make(map[string][]string),
	}
	go b.applyLoop()
	return b
}

// Close stops the applier goroutine. Pending updates are drained first.
func (b *Board) Close() {
	close(b.updates)
	<-b.done
}

func (b *Board) applyLoop() {
	defer close(b.done)
	for u := range b.updates {
		if u.ack != nil {
			close(u.ack)
			continue
		}
		b.mu.Lock()
		if statuses, ok := b.runs[u.runID]; ok {
			if st, ok := statuses[u.sourceURL]; ok && !st.State.Terminal() {
				st.State = u.state
				st.Message = u.message
			}
		}
		b.mu.Unlock()
	}
}

// Flush blocks until every transition emitted so far has been applied.
func (b *Board) Flush() {
	ack := make(chan struct{})
	b.updates <- statusUpdate{ack: ack}
	<-ack
}

// Register creates pending statuses for every URL of a new run. The status
// set for a run is exactly the validated input-URL set.
func (b *Board) Register(runID string, urls []string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	statuses := make(map[string]*models.ProcessingStatus, len(urls))
	for _, u := range urls {
		statuses[u] = &models.ProcessingStatus{SourceURL: u, State: models.StatusPending}
	}
	b.runs[runID] = statuses
	b.order[runID] = append([]string(nil), urls...)
}

// Transition emits a state change for one URL. Terminal states win: a
// transition arriving after success or error is dropped by the applier.
func (b *Board) Transition(runID, sourceURL string, state models.StatusState, message string) {
	b.updates <- statusUpdate{runID: runID, sourceURL: sourceURL, state: state, message: message}
}

// Snapshot returns the statuses of a run in submission order.
func (b *Board) Snapshot(runID string) []models.ProcessingStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()

	urls, ok := b.order[runID]
	if !ok {
		return nil
	}
	out := make([]models.ProcessingStatus, 0, len(urls))
	for _, u := range urls {
		if st := b.runs[runID][u]; st != nil {
			out = append(out, *st)
		}
	}
	return out
}

// Drop discards a run's statuses, used when the session is cleared.
func (b *Board) Drop(runID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.runs, runID)
	delete(b.order, runID)
}
