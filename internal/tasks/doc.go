// Package tasks runs batches of downloads against the external spotdl tool with live progress reporting.
//
// # Batch Engine
//
// [BatchEngine.Run] is the dispatcher:
//
//  1. Validates the [models.BatchConfig] and fails before anything is spawned
//  2. Detects the spotdl dialect once through a [spotdl.Detector]
//  3. Feeds work items to a fixed pool of workers, each running one [Invoker] call at a time
//  4. Folds each outcome into an [Aggregator] and forwards log and progress events to a [Sink]
//  5. Returns a [BatchResult] whose outcomes are in completion order
//
// The pool is sized from the configured concurrency (or [shared.OptimalWorkers]) and never exceeds the dialect's
// safe limit or the number of items. Nothing is retried; a retry is a new batch.
//
// # Cancellation
//
// A [CancelFlag] is checked before each item is handed to a worker, again by the worker before it invokes, and by
// the invocation itself while spotdl runs. Items that never started are recorded as cancelled without spawning.
//
// # Events
//
// The [Sink] receives [Event] values: log lines, progress snapshots, and one finished event. [ChannelSink] buffers
// without bound so the dispatcher never waits on the UI.
//
// # Sessions
//
// [Session] is the start/cancel surface for the CLI and TUI. Starting while a batch runs is a no-op.
//
// The optional [BatchRecorder] persists each batch (see repositories.BatchHistoryAdapter).
package tasks
