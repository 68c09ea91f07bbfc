package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/freightdata/pipeline/internal/clean"
	"github.com/freightdata/pipeline/internal/dataset"
	"github.com/freightdata/pipeline/internal/detect"
	"github.com/freightdata/pipeline/internal/extract"
	"github.com/freightdata/pipeline/internal/merge"
	"github.com/freightdata/pipeline/internal/model"
	"github.com/freightdata/pipeline/internal/notify"
	"github.com/freightdata/pipeline/internal/retry"
	"github.com/freightdata/pipeline/internal/store"
)

// StepCheck limits a run to change detection.
const StepCheck = "check"

// Detector decides whether the source has new data.
type Detector interface {
	Check(ctx context.Context, cp *model.Checkpoint) (detect.Result, error)
}

// Payload is an opened source archive ready to scan.
type Payload interface {
	Scan(ctx context.Context, years []int, chunkSize int, fn func(*extract.Batch) error) (extract.Stats, error)
	Close() error
}

// Source fetches the payload from the remote endpoint.
type Source interface {
	Fetch(ctx context.Context) (Payload, error)
}

// Cleaner normalizes batches and accumulates drop statistics. A fresh
// Cleaner is built per run so stats never leak across runs.
type Cleaner interface {
	CleanBatch(b *extract.Batch) ([]model.Record, error)
	Stats() clean.Stats
}

// Publisher loads the merged dataset into the warehouse.
type Publisher interface {
	EnsureSchema(ctx context.Context) error
	Publish(ctx context.Context, r *dataset.Reader) (int64, error)
}

// Locker serializes runs.
type Locker interface {
	Acquire() error
	Release() error
}

// Deps are the orchestrator's collaborators.
type Deps struct {
	Store      store.Store
	Lease      Locker
	Detector   Detector
	Source     Source
	NewCleaner func() Cleaner
	Publisher  Publisher // nil disables the warehouse stage
	Notifier   notify.Notifier
}

// Options tune one run.
type Options struct {
	Years           []int  // empty = all periods
	ChunkSize       int
	Step            string // StepCheck or "" for a full run
	SkipWarehouse   bool
	SkipNotify      bool
	ContinueOnError bool
	Force           bool // bypass change detection

	DatasetObject    string
	CheckpointObject string
	TempDir          string
	Retry            retry.Policy
}

// Orchestrator drives one run at a time through the stage sequence.
type Orchestrator struct {
	deps   Deps
	opts   Options
	logger *slog.Logger

	mu    sync.Mutex
	state State
}

// New creates an Orchestrator.
func New(deps Deps, opts Options, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{deps: deps, opts: opts, logger: logger, state: StateIdle}
}

// State reports the current lifecycle position.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	prev := o.state
	o.state = s
	o.mu.Unlock()
	o.logger.Debug("state transition", "from", string(prev), "to", string(s))
}

// Run executes one pipeline run. The returned summary is complete on
// every path, including failures.
func (o *Orchestrator) Run(ctx context.Context) (model.Summary, error) {
	summary := model.Summary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	logger := o.logger.With("run_id", summary.RunID)

	// The lease precedes every side effect. A held lease means another
	// run is active: leave, touching nothing, notifying no one.
	if err := o.deps.Lease.Acquire(); err != nil {
		summary.Status = model.StatusFailed
		summary.StageReached = string(StateIdle)
		summary.Reason = err.Error()
		summary.FinishedAt = time.Now()
		return summary, err
	}
	defer func() {
		if err := o.deps.Lease.Release(); err != nil {
			logger.Warn("lease release failed", "error", err)
		}
		o.setState(StateIdle)
	}()

	o.setState(StateChecking)
	summary.StageReached = string(StateChecking)

	cp, err := o.loadCheckpoint(ctx)
	if err != nil {
		return o.fail(ctx, logger, summary, err)
	}

	var res detect.Result
	if o.opts.Force {
		// A forced run bypasses detection; the checkpoint it writes
		// has no fingerprint, so the next run falls back to sampling.
		res = detect.Result{Decision: detect.Proceed, Reason: "forced"}
	} else {
		res, err = o.deps.Detector.Check(ctx, cp)
		if err != nil {
			return o.fail(ctx, logger, summary, fmt.Errorf("change detection: %w", err))
		}
	}
	logger.Info("change detection", "decision", res.Decision.String(), "reason", res.Reason)

	if res.Decision != detect.Proceed {
		o.setState(StateNoChange)
		summary.Status = model.StatusSkipped
		summary.StageReached = string(StateNoChange)
		summary.Reason = res.Reason
		summary.FinishedAt = time.Now()
		if cp != nil {
			summary.TotalRecords = cp.RecordCount
			summary.MaxPeriod = cp.MaxPeriod
		}
		o.notify(ctx, logger, summary)
		return summary, nil
	}

	if o.opts.Step == StepCheck {
		summary.Status = model.StatusSucceeded
		summary.Reason = res.Reason
		summary.FinishedAt = time.Now()
		return summary, nil
	}

	// Spool the next dataset version to a local temp file; it becomes
	// canonical only when the load stage publishes it.
	spool, err := os.CreateTemp(o.opts.TempDir, "dataset-*.csv")
	if err != nil {
		return o.fail(ctx, logger, summary, fmt.Errorf("create spool: %w", err))
	}
	defer func() {
		spool.Close()
		os.Remove(spool.Name())
	}()

	buf := bufio.NewWriterSize(spool, 256<<10)
	w := dataset.NewWriter(buf)

	merger := merge.New(logger)
	if err := o.loadExisting(ctx, cp, merger, w); err != nil {
		return o.fail(ctx, logger, summary, err)
	}

	cleaner := o.deps.NewCleaner()
	stats, err := o.ingest(ctx, cleaner, merger, w)
	if err != nil {
		return o.fail(ctx, logger, summary, err)
	}

	if err := w.Flush(); err != nil {
		return o.fail(ctx, logger, summary, err)
	}
	if err := buf.Flush(); err != nil {
		return o.fail(ctx, logger, summary, fmt.Errorf("flush spool: %w", err))
	}

	mres := merger.Result()
	cstats := cleaner.Stats()
	summary.RowsRead = stats.RowsRead
	summary.RowsDropped = cstats.Dropped
	summary.DropReasons = cstats.Reasons
	summary.UnitsFlagged = cstats.Flagged
	summary.DuplicatesSkipped = mres.Duplicates
	summary.RecordsAppended = mres.Appended
	summary.TotalRecords = mres.Total()
	summary.MaxPeriod = mres.MaxPeriod

	o.setState(StateLoading)
	summary.StageReached = string(StateLoading)
	if err := o.load(ctx, logger, spool, res.Fingerprint, summary.RunID, mres, &summary); err != nil {
		return o.fail(ctx, logger, summary, err)
	}

	summary.Status = model.StatusSucceeded
	summary.StageReached = string(StateNotifying)
	summary.FinishedAt = time.Now()
	o.notify(ctx, logger, summary)

	logger.Info("run complete",
		"appended", mres.Appended,
		"duplicates", mres.Duplicates,
		"total", mres.Total(),
		"max_period", model.FormatPeriod(mres.MaxPeriod),
		"duration", summary.Duration(),
	)
	return summary, nil
}

// loadCheckpoint reads the stored checkpoint; absence is not an error.
func (o *Orchestrator) loadCheckpoint(ctx context.Context) (*model.Checkpoint, error) {
	rc, err := o.deps.Store.Get(ctx, o.opts.CheckpointObject)
	if errors.Is(err, store.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	return model.UnmarshalCheckpoint(body)
}

// loadExisting streams the canonical dataset into the spool. A
// checkpoint that promises a dataset the store does not have is
// fatal inconsistency.
func (o *Orchestrator) loadExisting(ctx context.Context, cp *model.Checkpoint, m *merge.Merger, w *dataset.Writer) error {
	rc, err := o.deps.Store.Get(ctx, o.opts.DatasetObject)
	if errors.Is(err, store.ErrNotExist) {
		if cp != nil {
			return fmt.Errorf("%w: checkpoint records %d rows but dataset object is missing",
				merge.ErrInconsistent, cp.RecordCount)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read dataset: %w", err)
	}
	defer rc.Close()

	wantCount := -1
	if cp != nil {
		wantCount = cp.RecordCount
	}
	return m.LoadExisting(dataset.NewReader(bufio.NewReaderSize(rc, 256<<10)), w, wantCount)
}

// ingest overlaps extraction/cleaning with merging through a bounded
// channel. Batch order is preserved; the merger runs single-threaded.
func (o *Orchestrator) ingest(ctx context.Context, cleaner Cleaner, merger *merge.Merger, w *dataset.Writer) (extract.Stats, error) {
	o.setState(StateExtract)

	payload, err := o.deps.Source.Fetch(ctx)
	if err != nil {
		return extract.Stats{}, err
	}
	defer payload.Close()

	g, gctx := errgroup.WithContext(ctx)
	batches := make(chan []model.Record, 1)

	var stats extract.Stats
	g.Go(func() error {
		defer close(batches)
		o.setState(StateCleaning)
		var scanErr error
		stats, scanErr = payload.Scan(gctx, o.opts.Years, o.opts.ChunkSize, func(b *extract.Batch) error {
			recs, err := cleaner.CleanBatch(b)
			if err != nil {
				return err
			}
			select {
			case batches <- recs:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
		return scanErr
	})

	g.Go(func() error {
		first := true
		for recs := range batches {
			if first {
				o.setState(StateMerging)
				first = false
			}
			if err := merger.MergeBatch(w, recs); err != nil {
				return err
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return stats, err
	}
	return stats, nil
}

// load publishes the spooled dataset: warehouse first, then the blob
// store, then the checkpoint, so the canonical store and checkpoint
// never advance past a failed mandatory step.
func (o *Orchestrator) load(ctx context.Context, logger *slog.Logger, spool *os.File, fingerprint, runID string, mres merge.Result, summary *model.Summary) error {
	if o.deps.Publisher != nil && !o.opts.SkipWarehouse {
		err := o.publish(ctx, spool, summary)
		if err != nil {
			if !o.opts.ContinueOnError {
				return fmt.Errorf("warehouse publish: %w", err)
			}
			logger.Warn("warehouse publish failed, continuing", "error", err)
			summary.WarehouseSkipped = true
		}
	} else if o.deps.Publisher != nil {
		summary.WarehouseSkipped = true
	}

	err := o.opts.Retry.Do(ctx, logger, "publish dataset", func() error {
		if _, err := spool.Seek(0, io.SeekStart); err != nil {
			return err
		}
		return o.deps.Store.Put(ctx, o.opts.DatasetObject, spool)
	})
	if err != nil {
		return fmt.Errorf("publish dataset: %w", err)
	}

	cp := model.Checkpoint{
		Fingerprint: fingerprint,
		MaxPeriod:   mres.MaxPeriod,
		RecordCount: mres.Total(),
		RunID:       runID,
		RunAt:       time.Now().UTC(),
	}
	body, err := cp.Marshal()
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	err = o.opts.Retry.Do(ctx, logger, "save checkpoint", func() error {
		return o.deps.Store.Put(ctx, o.opts.CheckpointObject, bytes.NewReader(body))
	})
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

func (o *Orchestrator) publish(ctx context.Context, spool *os.File, summary *model.Summary) error {
	if err := o.deps.Publisher.EnsureSchema(ctx); err != nil {
		return err
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return err
	}
	n, err := o.deps.Publisher.Publish(ctx, dataset.NewReader(bufio.NewReaderSize(spool, 256<<10)))
	if err != nil {
		return err
	}
	summary.WarehouseRows = n
	return nil
}

// notify delivers the summary best-effort.
func (o *Orchestrator) notify(ctx context.Context, logger *slog.Logger, summary model.Summary) {
	if o.opts.SkipNotify || o.deps.Notifier == nil {
		return
	}
	o.setState(StateNotifying)
	if err := o.deps.Notifier.Notify(ctx, summary); err != nil {
		logger.Warn("notification failed", "error", err)
	}
}

// fail finalizes the summary for an error path and notifies.
func (o *Orchestrator) fail(ctx context.Context, logger *slog.Logger, summary model.Summary, err error) (model.Summary, error) {
	summary.StageReached = string(o.State())
	o.setState(StateFailed)
	summary.Status = model.StatusFailed
	summary.Reason = err.Error()
	summary.FinishedAt = time.Now()
	logger.Error("run failed", "stage", summary.StageReached, "error", err)
	o.notify(ctx, logger, summary)
	return summary, err
}
