// Package repositories implements SQLite persistence for batch history.
//
// [BatchRepository] stores one row per batch in the batches table and one row per work item in batch_items.
// Batches are soft deleted via deleted_at and excluded from queries by default.
// [BatchHistoryAdapter] plugs the repository into the batch engine as a tasks.BatchRecorder.
//
// Sequence numbers provide stable, human-readable ordering independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
