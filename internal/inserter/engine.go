package inserter

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dbsmedya/goseed/internal/logger"
	"github.com/dbsmedya/goseed/internal/types"
)

// DefaultYield is the pause between iterations.
const DefaultYield = time.Millisecond

// Engine inserts generated rows for one table at a time. A single Engine is
// shared by all tables of a run so that Stop affects the whole run.
type Engine struct {
	writer   BatchWriter
	progress ProgressSink
	logSink  LogSink
	logger   *logger.Logger
	yield    time.Duration
	now      func() time.Time

	stopped atomic.Bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithProgressSink sets where progress snapshots go.
func WithProgressSink(s ProgressSink) Option {
	return func(e *Engine) { e.progress = s }
}

// WithLogSink sets where human-readable messages go.
func WithLogSink(s LogSink) Option {
	return func(e *Engine) { e.logSink = s }
}

// WithLogger sets the structured logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithYield sets the pause between iterations. Zero only yields the processor.
func WithYield(d time.Duration) Option {
	return func(e *Engine) { e.yield = d }
}

// NewEngine creates an Engine writing through w.
func NewEngine(w BatchWriter, opts ...Option) *Engine {
	e := &Engine{
		writer:   w,
		progress: ProgressFunc(func(Progress) {}),
		logSink:  LogFunc(func(string) {}),
		logger:   logger.NewNop(),
		yield:    DefaultYield,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Stop asks the engine to start no further batches. Batches already in flight
// finish and are counted. Safe to call from any goroutine, any number of times.
func (e *Engine) Stop() {
	e.stopped.Store(true)
}

func (e *Engine) stopRequested(ctx context.Context) bool {
	return e.stopped.Load() || ctx.Err() != nil
}

func validateJob(job Job) error {
	switch {
	case job.Table == "":
		return fmt.Errorf("%w: table is required", ErrInvalidJob)
	case job.Generate == nil:
		return fmt.Errorf("%w: table %s has no row generator", ErrInvalidJob, job.Table)
	case job.TotalRecords < 0:
		return fmt.Errorf("%w: table %s: total records cannot be negative", ErrInvalidJob, job.Table)
	case job.BatchSize < 1:
		return fmt.Errorf("%w: table %s: batch size must be at least 1", ErrInvalidJob, job.Table)
	case job.Concurrency < 1:
		return fmt.Errorf("%w: table %s: concurrency must be at least 1", ErrInvalidJob, job.Table)
	case job.MaxRetries < 0:
		return fmt.Errorf("%w: table %s: max retries cannot be negative", ErrInvalidJob, job.Table)
	case job.LogInterval < 0:
		return fmt.Errorf("%w: table %s: log interval cannot be negative", ErrInvalidJob, job.Table)
	}
	return nil
}

// batch is one unit of work dispatched in an iteration.
type batch struct {
	rows    []types.Row
	attempt int
}

// batchOutcome is what a dispatched batch reports back. Outcomes are merged
// by the engine goroutine once the whole iteration settles.
type batchOutcome struct {
	keys      []any
	inserted  bool
	duplicate bool
}

// InsertAll generates and inserts job.TotalRecords rows. Referenced tables
// must already be complete. It returns a Result for every state; err is
// non-nil only when the table failed.
func (e *Engine) InsertAll(ctx context.Context, job Job) (*Result, error) {
	if err := validateJob(job); err != nil {
		return nil, err
	}
	if job.LogInterval == 0 {
		job.LogInterval = 1
	}

	log := e.logger.WithTable(job.Table)
	result := &Result{
		Table:        job.Table,
		TotalRecords: job.TotalRecords,
		Status:       StateRunning,
		PrimaryKeys:  make([]any, 0, job.TotalRecords),
	}
	tracker := newProgressTracker(job.Table, job.TotalRecords, e.now)
	queue := &retryQueue{}

	plannedBatches := (job.TotalRecords + job.BatchSize - 1) / job.BatchSize
	retryBatches := 0

	log.Infow("Starting table insertion",
		"records", job.TotalRecords,
		"batch_size", job.BatchSize,
		"concurrency", job.Concurrency,
	)

	// Writers must not see a caller cancellation mid-statement.
	writeCtx := context.WithoutCancel(ctx)

	iteration := 0
	finalReported := false
	for result.InsertedCount+result.DroppedRows < job.TotalRecords {
		if e.stopRequested(ctx) {
			break
		}
		iteration++

		batches, err := e.prepare(ctx, job, result, queue)
		if err != nil {
			result.Status = StateFailed
			log.Errorw("Row generation failed", "error", err)
			return result, err
		}
		if len(batches) == 0 {
			break
		}
		for _, b := range batches {
			if b.attempt > 1 {
				retryBatches++
			}
		}

		outcomes, err := e.dispatch(writeCtx, job, batches)
		result.Batches += len(batches)
		e.merge(job, result, queue, batches, outcomes, log)
		if err != nil {
			result.Status = StateFailed
			log.Errorw("Batch insert failed", "error", err)
			return result, err
		}

		done := result.InsertedCount+result.DroppedRows >= job.TotalRecords
		final := done || e.stopRequested(ctx)
		snap := tracker.snapshot(result.InsertedCount, result.Batches, plannedBatches+retryBatches, final && !done)
		if iteration%job.LogInterval == 0 || final || snap.Percentage == "100.00" {
			e.progress.OnProgress(snap)
			finalReported = final
		}

		if !done {
			e.pause(ctx)
		}
	}

	if result.InsertedCount+result.DroppedRows < job.TotalRecords {
		result.Status = StateStopped
		result.Shortfall = ShortfallStopped
	} else {
		result.Status = StateCompleted
		if result.DroppedRows > 0 {
			result.Shortfall = ShortfallDuplicates
		}
	}

	if !finalReported {
		e.progress.OnProgress(tracker.snapshot(result.InsertedCount, result.Batches, plannedBatches+retryBatches,
			result.Status == StateStopped))
	}

	e.logSink.Log(fmt.Sprintf("Inserted %d records into %s", result.InsertedCount, job.Table))
	if result.Shortfall != ShortfallNone {
		msg := fmt.Sprintf("Shortfall for %s: inserted %d of %d records (%s)",
			job.Table, result.InsertedCount, job.TotalRecords, shortfallReason(result))
		e.logSink.Log(msg)
		log.Warnw("Table finished short of target",
			"inserted", result.InsertedCount,
			"target", job.TotalRecords,
			"dropped", result.DroppedRows,
			"cause", string(result.Shortfall),
		)
	}

	log.Infow("Table insertion finished",
		"status", result.Status.String(),
		"inserted", result.InsertedCount,
		"batches", result.Batches,
	)
	return result, nil
}

func shortfallReason(r *Result) string {
	if r.Shortfall == ShortfallStopped {
		if r.DroppedRows > 0 {
			return fmt.Sprintf("stop requested, %d rows dropped as duplicates", r.DroppedRows)
		}
		return "stop requested"
	}
	return fmt.Sprintf("%d rows dropped as duplicates", r.DroppedRows)
}

// prepare fills up to job.Concurrency slots: retry entries first, regenerated
// with fresh rows, then new batches while rows remain unplanned.
func (e *Engine) prepare(ctx context.Context, job Job, result *Result, queue *retryQueue) ([]batch, error) {
	var batches []batch
	planned := 0

	for _, entry := range queue.pop(job.Concurrency) {
		if e.stopRequested(ctx) {
			return batches, nil
		}
		rows, err := generate(job, len(entry.rows))
		if err != nil {
			return nil, err
		}
		e.logSink.Log(fmt.Sprintf("Retrying %d rows for %s (attempt %d of %d)",
			len(rows), job.Table, entry.attempt, job.MaxRetries))
		planned += len(rows)
		batches = append(batches, batch{rows: rows, attempt: entry.attempt})
	}

	for len(batches) < job.Concurrency {
		needed := job.TotalRecords - result.InsertedCount - result.DroppedRows - queue.pendingRows() - planned
		if needed > job.BatchSize {
			needed = job.BatchSize
		}
		if needed <= 0 || e.stopRequested(ctx) {
			break
		}
		rows, err := generate(job, needed)
		if err != nil {
			return nil, err
		}
		planned += needed
		batches = append(batches, batch{rows: rows, attempt: 1})
	}

	return batches, nil
}

func generate(job Job, n int) ([]types.Row, error) {
	rows := make([]types.Row, 0, n)
	for i := 0; i < n; i++ {
		row, err := job.Generate()
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// dispatch runs the iteration's batches concurrently and waits for all of
// them. Each goroutine writes only its own outcome slot.
func (e *Engine) dispatch(ctx context.Context, job Job, batches []batch) ([]batchOutcome, error) {
	outcomes := make([]batchOutcome, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(job.Concurrency)
	for i, b := range batches {
		g.Go(func() error {
			keys, err := e.writer.InsertBatch(gctx, job.Table, job.PrimaryKey, b.rows)
			if err != nil {
				if errors.Is(err, ErrUniqueViolation) {
					outcomes[i] = batchOutcome{duplicate: true}
					return nil
				}
				return fmt.Errorf("failed to insert batch into %s: %w", job.Table, err)
			}
			outcomes[i] = batchOutcome{keys: keys, inserted: true}
			return nil
		})
	}
	return outcomes, g.Wait()
}

// merge folds settled outcomes into the result in dispatch order.
func (e *Engine) merge(job Job, result *Result, queue *retryQueue, batches []batch, outcomes []batchOutcome, log *logger.Logger) {
	first := result.Batches - len(batches) + 1
	for i, out := range outcomes {
		b := batches[i]
		switch {
		case out.duplicate && b.attempt >= job.MaxRetries:
			result.DroppedRows += len(b.rows)
			e.logSink.Log(fmt.Sprintf("Dropped %d rows for %s after %d attempts: duplicate values",
				len(b.rows), job.Table, b.attempt))
			log.WithBatch(first+i).Warnw("Dropping rows after repeated unique violations",
				"rows", len(b.rows),
				"attempts", b.attempt,
			)
		case out.duplicate:
			queue.push(retryEntry{rows: b.rows, attempt: b.attempt + 1})
			log.WithBatch(first+i).Debugw("Unique violation, queued for retry",
				"rows", len(b.rows),
				"next_attempt", b.attempt+1,
			)
		case out.inserted:
			result.InsertedCount += len(b.rows)
			result.PrimaryKeys = append(result.PrimaryKeys, out.keys...)
		}
	}
}

// pause yields between iterations and honors cancellation.
func (e *Engine) pause(ctx context.Context) {
	runtime.Gosched()
	if e.yield <= 0 {
		return
	}
	t := time.NewTimer(e.yield)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
