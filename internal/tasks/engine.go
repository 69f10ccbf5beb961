package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/savedl/internal/models"
	"github.com/desertthunder/savedl/internal/shared"
	"github.com/desertthunder/savedl/internal/spotdl"
)

// ErrMissingOutcome reports a batch that finished without an outcome for every item. It indicates a dispatcher defect.
var ErrMissingOutcome = errors.New("batch finished with missing outcomes")

// Invoker runs one work item to completion. Implementations convert every failure into an outcome.
//
// cancelled is closed when the batch is cancelled; a running invocation must stop and report [models.Cancelled].
type Invoker interface {
	Invoke(ctx context.Context, item models.WorkItem, cfg models.BatchConfig, cancelled <-chan struct{}) models.Outcome
}

// BatchRecorder persists batches. Failures are logged and never interrupt the batch.
type BatchRecorder interface {
	BatchStarted(b Batch, dialect models.Dialect, workers int) error
	BatchFinished(r *BatchResult) error
}

// Batch is a list of work items sharing one configuration.
type Batch struct {
	ID     string // generated when empty
	Source string // where the items came from, e.g. "liked" or "urls"
	Items  []models.WorkItem
	Config models.BatchConfig
}

// BatchResult is the outcome of a whole batch.
//
// Outcomes are in completion order, not submission order.
type BatchResult struct {
	ID         string           `json:"id"`
	Source     string           `json:"source"`
	Dialect    string           `json:"dialect"`
	Workers    int              `json:"workers"`
	OutputDir  string           `json:"output_dir"`
	Format     string           `json:"format"`
	Outcomes   []models.Outcome `json:"outcomes"`
	Progress   models.Progress  `json:"progress"`
	Success    bool             `json:"success"`
	Cancelled  bool             `json:"cancelled"`
	Summary    string           `json:"summary"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

// Status maps the result to a persisted batch status.
func (r *BatchResult) Status() models.BatchStatus {
	switch {
	case r.Cancelled:
		return models.BatchCancelled
	case r.Success:
		return models.BatchSucceeded
	default:
		return models.BatchFailed
	}
}

// Err returns [shared.ErrBatchFailed] when nothing was downloaded or already present. Cancellation is not an error.
func (r *BatchResult) Err() error {
	if r.Success || r.Cancelled {
		return nil
	}
	return fmt.Errorf("%w: %s", shared.ErrBatchFailed, r.Summary)
}

// BatchEngine dispatches work items to a bounded pool of invocations.
type BatchEngine struct {
	invoker     Invoker
	detector    spotdl.Detector
	recorder    BatchRecorder
	autoWorkers func() int
	logger      *log.Logger
}

// EngineOpts configures a [BatchEngine].
type EngineOpts struct {
	Invoker     Invoker
	Detector    spotdl.Detector
	Recorder    BatchRecorder // optional
	AutoWorkers func() int    // pool size when the config asks for automatic sizing
	Logger      *log.Logger
}

// NewBatchEngine creates an engine. Detection defaults to the legacy dialect when no detector is given.
func NewBatchEngine(opts EngineOpts) *BatchEngine {
	if opts.Detector == nil {
		opts.Detector = spotdl.Static(models.Legacy)
	}
	if opts.AutoWorkers == nil {
		opts.AutoWorkers = shared.OptimalWorkers
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr)
	}
	return &BatchEngine{
		invoker:     opts.Invoker,
		detector:    opts.Detector,
		recorder:    opts.Recorder,
		autoWorkers: opts.AutoWorkers,
		logger:      opts.Logger,
	}
}

// PoolSize returns how many invocations may run at once for n items.
//
// The configured concurrency (or the automatic size) is clamped to 1..[shared.MaxWorkers], then to the dialect's
// safe limit and the item count.
func (e *BatchEngine) PoolSize(cfg models.BatchConfig, n int) int {
	w := cfg.Concurrency
	if w == 0 {
		w = e.autoWorkers()
	}
	w = max(1, min(w, shared.MaxWorkers))
	return max(1, min(w, cfg.Dialect.MaxConcurrency(), n))
}

// Run executes b, reporting to sink, until every item has an outcome.
//
// Cancellation is observed through flag, which must be cleared by the caller beforehand. Cancelling ctx has the
// same effect as [CancelFlag.RequestCancel]. Items not started when the flag is set are recorded as
// [models.Cancelled] without being invoked; running invocations are terminated and drained. The result is
// cancelled only when at least one item was.
//
// An error is returned only for invalid input or an internal defect. Per-item failures are outcomes.
func (e *BatchEngine) Run(ctx context.Context, b Batch, flag *CancelFlag, sink Sink) (*BatchResult, error) {
	if e.invoker == nil {
		return nil, fmt.Errorf("%w: no invoker configured", shared.ErrInvalidConfig)
	}
	if err := b.Config.Validate(); err != nil {
		return nil, err
	}
	if err := uniquePositions(b.Items); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = Discard
	}
	if b.ID == "" {
		b.ID = shared.GenerateID()
	}

	result := &BatchResult{
		ID:        b.ID,
		Source:    b.Source,
		OutputDir: b.Config.OutputDir,
		Format:    b.Config.Format,
		Outcomes:  make([]models.Outcome, 0, len(b.Items)),
		Progress:  models.Progress{Total: len(b.Items)},
		StartedAt: time.Now(),
	}
	logger := shared.WithLogger(e.logger, "batch", b.ID)

	if len(b.Items) == 0 {
		e.finish(result, false, sink)
		logger.Info("empty batch")
		return result, nil
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	done := flag.Done()
	go func() {
		select {
		case <-done:
			stop()
		case <-runCtx.Done():
			if ctx.Err() != nil {
				flag.RequestCancel()
			}
		}
	}()

	dialect := b.Config.Dialect
	if !flag.IsCancelled() {
		dialect = e.detector.Detect(runCtx)
	}
	cfg := b.Config.WithDialect(dialect)
	workers := e.PoolSize(cfg, len(b.Items))
	result.Dialect = dialect.String()
	result.Workers = workers

	if e.recorder != nil {
		if err := e.recorder.BatchStarted(b, dialect, workers); err != nil {
			logger.Warn("failed to record batch start", "error", err)
		}
	}

	logger.Info("batch started", "items", len(b.Items), "workers", workers, "dialect", dialect)
	sink.Send(detectedEvent(dialect))
	sink.Send(startedEvent(len(b.Items), workers))

	var limiter *rate.Limiter
	if cfg.SpawnRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.SpawnRate), 1)
	}

	jobs := make(chan models.WorkItem)
	results := make(chan models.Outcome, len(b.Items))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go e.worker(runCtx, &wg, jobs, results, cfg, flag, limiter)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(jobs)
		for i, item := range b.Items {
			if flag.IsCancelled() {
				cancelRemaining(b.Items[i:], results)
				return
			}
			select {
			case jobs <- item:
			case <-done:
				cancelRemaining(b.Items[i:], results)
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	agg := NewAggregator(len(b.Items))
	var defect error
	announced := false
	for o := range results {
		if !announced && flag.IsCancelled() {
			sink.Send(cancellingEvent())
			announced = true
		}
		p, err := agg.Record(o)
		if err != nil {
			logger.Error("outcome rejected", "position", o.Item.Position, "error", err)
			defect = errors.Join(defect, err)
			continue
		}
		result.Outcomes = append(result.Outcomes, o)
		logger.Debug("item finished", "position", o.Item.Position, "outcome", o.Kind, "elapsed", o.Elapsed)

		if ev, ok := outcomeEvent(o); ok {
			sink.Send(ev)
		}
		if o.Counted() {
			sink.Send(progressEvent(p))
		}
	}

	if agg.Recorded() != len(b.Items) {
		defect = errors.Join(defect, fmt.Errorf("%w: %d of %d", ErrMissingOutcome, agg.Recorded(), len(b.Items)))
	}

	result.Progress = agg.Snapshot()
	// A cancel that lands after the last outcome truncated nothing.
	e.finish(result, flag.IsCancelled() && result.Progress.Cancelled > 0, sink)
	logger.Info("batch finished",
		"downloaded", result.Progress.Downloaded,
		"skipped", result.Progress.Skipped,
		"failed", result.Progress.Failed,
		"cancelled", result.Progress.Cancelled,
		"elapsed", result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond),
	)

	if e.recorder != nil {
		if err := e.recorder.BatchFinished(result); err != nil {
			logger.Warn("failed to record batch result", "error", err)
		}
	}

	if defect != nil {
		return result, defect
	}
	return result, nil
}

// worker invokes items from jobs until the channel closes.
func (e *BatchEngine) worker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan models.WorkItem,
	results chan<- models.Outcome,
	cfg models.BatchConfig,
	flag *CancelFlag,
	limiter *rate.Limiter,
) {
	defer wg.Done()

	done := flag.Done()
	for item := range jobs {
		if flag.IsCancelled() {
			results <- cancelledOutcome(item)
			continue
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				results <- cancelledOutcome(item)
				continue
			}
		}
		results <- e.invoker.Invoke(ctx, item, cfg, done)
	}
}

func (e *BatchEngine) finish(r *BatchResult, cancelled bool, sink Sink) {
	r.FinishedAt = time.Now()
	r.Cancelled = cancelled
	r.Success = !cancelled && r.Progress.Succeeded()
	if cancelled {
		r.Summary = "Cancelled"
	} else {
		r.Summary = r.Progress.Summary()
	}
	sink.Send(finishedEvent(r))
}

func cancelRemaining(items []models.WorkItem, results chan<- models.Outcome) {
	for _, item := range items {
		results <- cancelledOutcome(item)
	}
}

func cancelledOutcome(item models.WorkItem) models.Outcome {
	return models.Outcome{Item: item, Kind: models.Cancelled}
}

func uniquePositions(items []models.WorkItem) error {
	seen := make(map[int]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item.Position]; ok {
			return fmt.Errorf("%w: duplicate work item position %d", shared.ErrInvalidArgument, item.Position)
		}
		seen[item.Position] = struct{}{}
	}
	return nil
}
