package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/savedl/internal/models"
	"github.com/desertthunder/savedl/internal/shared"
)

const batchColumns = `
	id, seq, source, status, dialect, output_dir, format, workers,
	total, downloaded, skipped, failed, not_found, cancelled, summary,
	created_at, updated_at, finished_at, deleted_at
`

type scanner interface {
	Scan(dest ...any) error
}

// BatchRepository implements models.Repository[*models.BatchRecord] for batch history.
//
// Per-item outcomes live in batch_items and are written with the batch on Update.
type BatchRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.BatchRecord] = (*BatchRepository)(nil)

// NewBatchRepository creates a new BatchRepository with the given database connection
func NewBatchRepository(db *sql.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Create inserts a new batch with a generated sequence number. An empty ID is generated.
func (r *BatchRepository) Create(batch *models.BatchRecord) error {
	if err := batch.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "batches")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	batch.SetSequence(sequence)
	if batch.ID() == "" {
		batch.SetID(shared.GenerateID())
	}

	p := batch.Progress()
	_, err = r.db.Exec(`
		INSERT INTO batches (`+batchColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`,
		batch.ID(), sequence, batch.Source(), string(batch.Status()), batch.Dialect().String(),
		batch.OutputDir(), batch.Format(), batch.Workers(),
		p.Total, p.Downloaded, p.Skipped, p.Failed, p.NotFound, p.Cancelled, batch.Summary(),
		batch.CreatedAt(), batch.UpdatedAt(), nullTime(batch.FinishedAt()),
	)
	if err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}

	if len(batch.Outcomes()) > 0 {
		return r.replaceItems(batch.ID(), batch.Outcomes())
	}
	return nil
}

// Get retrieves a batch and its outcomes by ID, excluding soft-deleted batches
func (r *BatchRepository) Get(id string) (*models.BatchRecord, error) {
	row := r.db.QueryRow(`SELECT `+batchColumns+` FROM batches WHERE id = ? AND deleted_at IS NULL`, id)

	batch, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrBatchNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	outcomes, err := r.items(id)
	if err != nil {
		return nil, err
	}
	batch.SetOutcomes(outcomes)
	return batch, nil
}

// GetBySequence retrieves a batch by its human-facing sequence number
func (r *BatchRepository) GetBySequence(seq int) (*models.BatchRecord, error) {
	var id string
	err := r.db.QueryRow(`SELECT id FROM batches WHERE seq = ? AND deleted_at IS NULL`, seq).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: #%d", shared.ErrBatchNotFound, seq)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query batch: %w", err)
	}
	return r.Get(id)
}

// Update writes the batch's status, counters and outcomes
func (r *BatchRepository) Update(batch *models.BatchRecord) error {
	if err := batch.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	batch.SetUpdatedAt(now)
	p := batch.Progress()

	result, err := r.db.Exec(`
		UPDATE batches
		SET status = ?, dialect = ?, workers = ?, total = ?, downloaded = ?, skipped = ?,
			failed = ?, not_found = ?, cancelled = ?, summary = ?, updated_at = ?, finished_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`,
		string(batch.Status()), batch.Dialect().String(), batch.Workers(), p.Total, p.Downloaded, p.Skipped,
		p.Failed, p.NotFound, p.Cancelled, batch.Summary(), now, nullTime(batch.FinishedAt()),
		batch.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update batch: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrBatchNotFound, batch.ID())
	}

	return r.replaceItems(batch.ID(), batch.Outcomes())
}

// Delete soft-deletes a batch by ID
func (r *BatchRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE batches SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete batch: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrBatchNotFound, id)
	}

	return nil
}

// List retrieves batches newest first, without outcomes.
//
// Supported criteria: "status" (string), "source" (string) and "limit" (int).
func (r *BatchRepository) List(criteria map[string]any) ([]*models.BatchRecord, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE deleted_at IS NULL`
	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	if source, ok := criteria["source"].(string); ok && source != "" {
		query += " AND source = ?"
		args = append(args, source)
	}

	query += " ORDER BY seq DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	var batches []*models.BatchRecord
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return batches, nil
}

// FailedItems returns the failed and not-found items of a batch in submission order.
func (r *BatchRepository) FailedItems(id string) ([]models.WorkItem, error) {
	batch, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	return batch.FailedItems(), nil
}

func (r *BatchRepository) replaceItems(batchID string, outcomes []models.Outcome) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM batch_items WHERE batch_id = ?`, batchID); err != nil {
		return fmt.Errorf("failed to clear batch items: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO batch_items (batch_id, position, url, outcome, detail, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch item insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range outcomes {
		if _, err := stmt.Exec(batchID, o.Item.Position, o.Item.URL, o.Kind.String(), o.Detail, o.Elapsed.Milliseconds()); err != nil {
			return fmt.Errorf("failed to insert batch item %d: %w", o.Item.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch items: %w", err)
	}
	return nil
}

func (r *BatchRepository) items(batchID string) ([]models.Outcome, error) {
	rows, err := r.db.Query(`
		SELECT position, url, outcome, detail, elapsed_ms
		FROM batch_items
		WHERE batch_id = ?
		ORDER BY position
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch items: %w", err)
	}
	defer rows.Close()

	var outcomes []models.Outcome
	for rows.Next() {
		var (
			o         models.Outcome
			kind      string
			elapsedMs int64
		)
		if err := rows.Scan(&o.Item.Position, &o.Item.URL, &kind, &o.Detail, &elapsedMs); err != nil {
			return nil, fmt.Errorf("failed to scan batch item: %w", err)
		}
		if o.Kind, err = models.ParseOutcomeKind(kind); err != nil {
			return nil, fmt.Errorf("batch item %d: %w", o.Item.Position, err)
		}
		o.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		outcomes = append(outcomes, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return outcomes, nil
}

// scanBatch scans a batches row into a [models.BatchRecord]
func scanBatch(row scanner) (*models.BatchRecord, error) {
	var (
		id, source, status, dialect, outputDir, format, summary string
		sequence, workers                                       int
		p                                                       models.Progress
		createdAt, updatedAt                                    time.Time
		finishedAt, deletedAt                                   sql.NullTime
	)

	err := row.Scan(
		&id, &sequence, &source, &status, &dialect, &outputDir, &format, &workers,
		&p.Total, &p.Downloaded, &p.Skipped, &p.Failed, &p.NotFound, &p.Cancelled, &summary,
		&createdAt, &updatedAt, &finishedAt, &deletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan batch: %w", err)
	}
	p.Completed = p.Downloaded + p.Skipped + p.Failed

	d, err := models.ParseDialect(dialect)
	if err != nil {
		d = models.Legacy
	}

	batch := models.NewBatchRecord(sequence, source, models.BatchConfig{
		OutputDir:   outputDir,
		Format:      format,
		Concurrency: workers,
		Dialect:     d,
	}, p.Total)
	batch.SetID(id)
	batch.SetStatus(models.BatchStatus(status))
	batch.SetProgress(p)
	batch.SetSummary(summary)
	batch.SetCreatedAt(createdAt)
	batch.SetUpdatedAt(updatedAt)
	if finishedAt.Valid {
		batch.SetFinishedAt(&finishedAt.Time)
	}
	if deletedAt.Valid {
		batch.SetDeletedAt(&deletedAt.Time)
	}

	return batch, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
