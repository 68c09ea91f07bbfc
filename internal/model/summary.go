package model

import "time"

// Run outcome values.
const (
	StatusSucceeded = "succeeded"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// Summary describes a single pipeline run. One is produced for every
// run regardless of outcome and handed to the notification channel.
type Summary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	Status       string // succeeded | skipped | failed
	StageReached string
	Reason       string // skip reason or failure detail

	RowsRead          int            // raw rows scanned from the source
	RowsDropped       int            // cleaner drops
	DropReasons       map[string]int // reason histogram
	UnitsFlagged      int            // units kept verbatim outside the synonym table
	DuplicatesSkipped int            // merger skips
	RecordsAppended   int            // net new records this run
	TotalRecords      int            // merged dataset size after the run
	MaxPeriod         int            // newest period (YYYYMM) after the run

	WarehouseRows    int64 // rows published to the query sink
	WarehouseSkipped bool  // publish skipped under continue-on-error
}

// Duration returns the wall-clock run time.
func (s Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
