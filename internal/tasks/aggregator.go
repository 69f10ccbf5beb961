package tasks

import (
	"errors"
	"fmt"
	"sync"

	"github.com/desertthunder/savedl/internal/models"
)

// ErrDuplicateOutcome reports a second outcome for the same work item. It indicates a dispatcher defect.
var ErrDuplicateOutcome = errors.New("duplicate outcome for work item")

// Aggregator folds outcomes into [models.Progress].
//
// Record is safe for concurrent use; each work item may be recorded once.
type Aggregator struct {
	mu       sync.Mutex
	progress models.Progress
	seen     map[int]struct{}
}

// NewAggregator creates an aggregator for a batch of total items.
func NewAggregator(total int) *Aggregator {
	return &Aggregator{
		progress: models.Progress{Total: total},
		seen:     make(map[int]struct{}, total),
	}
}

// Record counts o and returns a snapshot of the updated progress.
func (a *Aggregator) Record(o models.Outcome) (models.Progress, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.seen[o.Item.Position]; ok {
		return a.progress, fmt.Errorf("%w: position %d", ErrDuplicateOutcome, o.Item.Position)
	}
	a.seen[o.Item.Position] = struct{}{}
	a.progress = a.progress.Add(o)
	return a.progress, nil
}

// Snapshot returns the current progress.
func (a *Aggregator) Snapshot() models.Progress {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.progress
}

// Recorded returns how many outcomes, cancelled ones included, have been recorded.
func (a *Aggregator) Recorded() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.seen)
}
