package repositories

import (
	"fmt"

	"github.com/desertthunder/savedl/internal/models"
	"github.com/desertthunder/savedl/internal/tasks"
)

// BatchHistoryAdapter implements tasks.BatchRecorder using BatchRepository.
//
// The batch row is written when dispatch starts so interrupted runs still show up as "running".
type BatchHistoryAdapter struct {
	repo *BatchRepository
}

// NewBatchHistoryAdapter creates a new BatchHistoryAdapter with the given repository
func NewBatchHistoryAdapter(repo *BatchRepository) *BatchHistoryAdapter {
	return &BatchHistoryAdapter{repo: repo}
}

// BatchStarted inserts a running batch.
func (a *BatchHistoryAdapter) BatchStarted(b tasks.Batch, dialect models.Dialect, workers int) error {
	record := models.NewBatchRecord(0, b.Source, b.Config.WithDialect(dialect), len(b.Items))
	record.SetID(b.ID)
	record.SetWorkers(workers)

	if err := a.repo.Create(record); err != nil {
		return fmt.Errorf("failed to record batch: %w", err)
	}
	return nil
}

// BatchFinished stores the final counters and every outcome.
func (a *BatchHistoryAdapter) BatchFinished(r *tasks.BatchResult) error {
	record, err := a.repo.Get(r.ID)
	if err != nil {
		return fmt.Errorf("failed to load batch: %w", err)
	}

	record.Finish(r.Status(), r.Progress, r.Summary, r.Outcomes, r.FinishedAt)
	if err := a.repo.Update(record); err != nil {
		return fmt.Errorf("failed to record batch result: %w", err)
	}
	return nil
}
