package merge

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/freightdata/pipeline/internal/dataset"
	"github.com/freightdata/pipeline/internal/model"
)

// ErrInconsistent means the stored dataset does not match the
// checkpoint that describes it. Merging onto an inconsistent dataset
// could corrupt it, so the run must stop and a human must reconcile.
var ErrInconsistent = errors.New("merge: dataset inconsistent with checkpoint")

// Result summarizes a completed merge.
type Result struct {
	Existing   int // records carried over from the stored dataset
	Appended   int // new records added this run
	Duplicates int // incoming records skipped as already present
	MaxPeriod  int // newest YYYYMM across the merged dataset
}

// Total is the record count of the merged dataset.
func (r Result) Total() int { return r.Existing + r.Appended }

// Merger builds the next version of the dataset. Call LoadExisting
// once, then MergeBatch for each cleaned batch in order.
type Merger struct {
	index  map[uint64]struct{}
	result Result
	logger *slog.Logger
}

// New creates an empty Merger.
func New(logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{
		index:  make(map[uint64]struct{}),
		logger: logger,
	}
}

// LoadExisting streams the stored dataset into the new spool while
// building the duplicate index. wantCount is the checkpoint's record
// count, or -1 when no checkpoint exists. A duplicate key inside the
// stored dataset, or a count that disagrees with the checkpoint,
// returns ErrInconsistent.
func (m *Merger) LoadExisting(r *dataset.Reader, w *dataset.Writer, wantCount int) error {
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("merge: read existing dataset: %w", err)
		}

		h := rec.KeyHash()
		if _, dup := m.index[h]; dup {
			return fmt.Errorf("%w: duplicate key %q in stored dataset", ErrInconsistent, rec.Key())
		}
		m.index[h] = struct{}{}

		if err := w.Write(rec); err != nil {
			return err
		}
		m.result.Existing++
		if p := rec.Period(); p > m.result.MaxPeriod {
			m.result.MaxPeriod = p
		}
	}

	if wantCount >= 0 && m.result.Existing != wantCount {
		return fmt.Errorf("%w: stored dataset has %d records, checkpoint says %d",
			ErrInconsistent, m.result.Existing, wantCount)
	}

	m.logger.Info("existing dataset loaded",
		"records", m.result.Existing,
		"max_period", model.FormatPeriod(m.result.MaxPeriod),
	)
	return nil
}

// MergeBatch appends the records whose keys are not yet present,
// keeping the first occurrence of any duplicate.
func (m *Merger) MergeBatch(w *dataset.Writer, recs []model.Record) error {
	for _, rec := range recs {
		h := rec.KeyHash()
		if _, dup := m.index[h]; dup {
			m.result.Duplicates++
			continue
		}
		m.index[h] = struct{}{}

		if err := w.Write(rec); err != nil {
			return err
		}
		m.result.Appended++
		if p := rec.Period(); p > m.result.MaxPeriod {
			m.result.MaxPeriod = p
		}
	}
	return nil
}

// Result returns the merge counters accumulated so far.
func (m *Merger) Result() Result { return m.result }
