// Package detect decides whether the remote source has new data since
// the last successful run. The primary signal is the cheap header
// fingerprint; an unchanged fingerprint short-circuits to no change,
// while anything else (changed, missing, or failed) falls back to
// sampling the payload for a period newer than the checkpoint.
package detect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/freightdata/pipeline/internal/model"
	"github.com/freightdata/pipeline/internal/source"
)

// Decision is the outcome of a change check.
type Decision int

const (
	// Proceed means new data is (or may be) available.
	Proceed Decision = iota
	// NoChange means the source matches the last successful run.
	NoChange
	// Unknown means neither signal could be evaluated. The caller
	// skips the run rather than re-ingesting blindly.
	Unknown
)

func (d Decision) String() string {
	switch d {
	case Proceed:
		return "proceed"
	case NoChange:
		return "no change"
	case Unknown:
		return "unknown"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Result carries the decision, a human-readable reason for the run
// summary, and the fingerprint to checkpoint on success.
type Result struct {
	Decision    Decision
	Reason      string
	Fingerprint string // empty when the source exposed no metadata
}

// Prober is the header-metadata side of the source client.
type Prober interface {
	Probe(ctx context.Context) (source.Fingerprint, error)
}

// Sampler reads a bounded prefix of the payload for its newest period.
type Sampler interface {
	SampleMaxPeriod(ctx context.Context, maxRows int) (int, error)
}

// Detector evaluates the two change signals in order.
type Detector struct {
	prober     Prober
	sampler    Sampler
	sampleRows int
	logger     *slog.Logger
}

// New creates a Detector. sampleRows bounds the fallback scan.
func New(prober Prober, sampler Sampler, sampleRows int, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{prober: prober, sampler: sampler, sampleRows: sampleRows, logger: logger}
}

// Check compares the source against the checkpoint. A nil checkpoint
// always proceeds: there is nothing to be idempotent against.
func (d *Detector) Check(ctx context.Context, cp *model.Checkpoint) (Result, error) {
	if cp == nil {
		return Result{Decision: Proceed, Reason: "no previous run"}, nil
	}

	fp, err := d.prober.Probe(ctx)
	switch {
	case err == nil && cp.Fingerprint != "" && fp.Hash == cp.Fingerprint:
		return Result{
			Decision:    NoChange,
			Reason:      "source fingerprint unchanged",
			Fingerprint: fp.Hash,
		}, nil
	case err == nil && cp.Fingerprint != "":
		// A changed fingerprint alone does not authorize a run: the
		// source re-publishes identical data with fresh metadata, so
		// confirm against the sampled max period before re-ingesting.
		d.logger.Debug("source fingerprint changed, sampling payload to confirm")
		return d.sample(ctx, cp, fp.Hash)
	case err == nil:
		// Probe worked but the last run saw no metadata; the hashes
		// are not comparable, so fall through to sampling and carry
		// the fresh fingerprint forward.
		d.logger.Debug("checkpoint has no fingerprint, sampling payload")
		return d.sample(ctx, cp, fp.Hash)
	case errors.Is(err, source.ErrNoFingerprint):
		d.logger.Debug("source exposes no modification metadata, sampling payload")
		return d.sample(ctx, cp, "")
	default:
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		d.logger.Warn("probe failed, sampling payload", "error", err)
		return d.sample(ctx, cp, "")
	}
}

func (d *Detector) sample(ctx context.Context, cp *model.Checkpoint, fingerprint string) (Result, error) {
	maxPeriod, err := d.sampler.SampleMaxPeriod(ctx, d.sampleRows)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		d.logger.Warn("sample failed", "error", err)
		return Result{
			Decision: Unknown,
			Reason:   fmt.Sprintf("neither change signal available: %v", err),
		}, nil
	}

	if maxPeriod > cp.MaxPeriod {
		return Result{
			Decision: Proceed,
			Reason: fmt.Sprintf("sampled period %s newer than checkpoint %s",
				model.FormatPeriod(maxPeriod), model.FormatPeriod(cp.MaxPeriod)),
			Fingerprint: fingerprint,
		}, nil
	}
	return Result{
		Decision: NoChange,
		Reason: fmt.Sprintf("sampled period %s not newer than checkpoint %s",
			model.FormatPeriod(maxPeriod), model.FormatPeriod(cp.MaxPeriod)),
		Fingerprint: fingerprint,
	}, nil
}
