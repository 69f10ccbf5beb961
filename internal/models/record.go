package models

import (
	"fmt"
	"slices"
	"time"
)

// BatchStatus is the lifecycle state of a persisted batch.
type BatchStatus string

const (
	BatchRunning   BatchStatus = "running"
	BatchSucceeded BatchStatus = "succeeded"
	BatchFailed    BatchStatus = "failed"
	BatchCancelled BatchStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s BatchStatus) Valid() bool {
	switch s {
	case BatchRunning, BatchSucceeded, BatchFailed, BatchCancelled:
		return true
	}
	return false
}

// BatchRecord is a persisted batch with its per-item outcomes.
type BatchRecord struct {
	id         string
	sequence   int
	source     string
	status     BatchStatus
	dialect    Dialect
	outputDir  string
	format     string
	workers    int
	progress   Progress
	summary    string
	outcomes   []Outcome
	createdAt  time.Time
	updatedAt  time.Time
	finishedAt *time.Time
	deletedAt  *time.Time
}

// NewBatchRecord creates a running batch record for items described by source.
func NewBatchRecord(sequence int, source string, cfg BatchConfig, total int) *BatchRecord {
	now := time.Now()
	return &BatchRecord{
		sequence:  sequence,
		source:    source,
		status:    BatchRunning,
		dialect:   cfg.Dialect,
		outputDir: cfg.OutputDir,
		format:    cfg.Format,
		workers:   cfg.Concurrency,
		progress:  Progress{Total: total},
		createdAt: now,
		updatedAt: now,
	}
}

func (b *BatchRecord) ID() string             { return b.id }
func (b *BatchRecord) Sequence() int          { return b.sequence }
func (b *BatchRecord) Source() string         { return b.source }
func (b *BatchRecord) Status() BatchStatus    { return b.status }
func (b *BatchRecord) Dialect() Dialect       { return b.dialect }
func (b *BatchRecord) OutputDir() string      { return b.outputDir }
func (b *BatchRecord) Format() string         { return b.format }
func (b *BatchRecord) Workers() int           { return b.workers }
func (b *BatchRecord) Progress() Progress     { return b.progress }
func (b *BatchRecord) Summary() string        { return b.summary }
func (b *BatchRecord) Outcomes() []Outcome    { return b.outcomes }
func (b *BatchRecord) CreatedAt() time.Time   { return b.createdAt }
func (b *BatchRecord) UpdatedAt() time.Time   { return b.updatedAt }
func (b *BatchRecord) FinishedAt() *time.Time { return b.finishedAt }
func (b *BatchRecord) DeletedAt() *time.Time  { return b.deletedAt }

func (b *BatchRecord) SetID(id string)              { b.id = id }
func (b *BatchRecord) SetSequence(seq int)          { b.sequence = seq }
func (b *BatchRecord) SetStatus(s BatchStatus)      { b.status = s }
func (b *BatchRecord) SetDialect(d Dialect)         { b.dialect = d }
func (b *BatchRecord) SetWorkers(n int)             { b.workers = n }
func (b *BatchRecord) SetProgress(p Progress)       { b.progress = p }
func (b *BatchRecord) SetSummary(s string)          { b.summary = s }
func (b *BatchRecord) SetOutcomes(o []Outcome)      { b.outcomes = o }
func (b *BatchRecord) SetCreatedAt(t time.Time)     { b.createdAt = t }
func (b *BatchRecord) SetUpdatedAt(t time.Time)     { b.updatedAt = t }
func (b *BatchRecord) SetFinishedAt(t *time.Time)   { b.finishedAt = t }
func (b *BatchRecord) SetDeletedAt(t *time.Time)    { b.deletedAt = t }
func (b *BatchRecord) SetOutput(dir, format string) { b.outputDir, b.format = dir, format }

// Finish moves the record to a terminal status.
func (b *BatchRecord) Finish(status BatchStatus, progress Progress, summary string, outcomes []Outcome, at time.Time) {
	b.status = status
	b.progress = progress
	b.summary = summary
	b.outcomes = outcomes
	b.finishedAt = &at
}

// FailedItems returns the work items whose outcome was a failure, ordered by position.
func (b *BatchRecord) FailedItems() []WorkItem {
	var items []WorkItem
	for _, o := range b.outcomes {
		if o.IsFailure() {
			items = append(items, o.Item)
		}
	}
	slices.SortFunc(items, func(a, b WorkItem) int { return a.Position - b.Position })
	return items
}

// Validate checks if the record's data is valid.
func (b *BatchRecord) Validate() error {
	if b.source == "" {
		return fmt.Errorf("batch source is required")
	}
	if b.outputDir == "" {
		return fmt.Errorf("batch output directory is required")
	}
	if !b.status.Valid() {
		return fmt.Errorf("invalid batch status: %q", b.status)
	}
	if b.progress.Total < 0 {
		return fmt.Errorf("batch total must not be negative")
	}
	return nil
}
