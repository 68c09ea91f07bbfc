// Package schedule runs the pipeline on a fixed interval. Each tick
// is one full run; a run still in progress when the next tick fires
// simply holds the lease, so overlapping ticks skip themselves.
package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/freightdata/pipeline/internal/model"
)

// Job is one pipeline run.
type Job interface {
	Run(ctx context.Context) (model.Summary, error)
}

// JobFunc is a function adapter for Job.
type JobFunc func(ctx context.Context) (model.Summary, error)

func (f JobFunc) Run(ctx context.Context) (model.Summary, error) { return f(ctx) }

// Runner triggers the job immediately on start and then on every
// interval tick.
type Runner struct {
	interval time.Duration
	job      Job
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Runner.
func New(interval time.Duration, job Job, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{interval: interval, job: job, logger: logger}
}

// Start begins the schedule loop.
func (r *Runner) Start(ctx context.Context) {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.loop()

	r.logger.Info("scheduler started", "interval", r.interval)
}

// Stop cancels the loop and waits for an in-flight run to finish.
func (r *Runner) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) loop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Run immediately on start.
	r.runOnce()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.runOnce()
		}
	}
}

func (r *Runner) runOnce() {
	start := time.Now()
	summary, err := r.job.Run(r.ctx)
	if err != nil {
		if r.ctx.Err() != nil {
			return
		}
		r.logger.Error("scheduled run failed", "error", err, "duration", time.Since(start))
		return
	}
	r.logger.Info("scheduled run finished",
		"status", summary.Status,
		"appended", summary.RecordsAppended,
		"duration", time.Since(start),
	)
}
