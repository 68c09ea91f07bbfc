package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/freightdata/pipeline/internal/model"
)

// Notifier delivers a run summary to an operator channel.
type Notifier interface {
	Notify(ctx context.Context, s model.Summary) error
}

// LogNotifier writes summaries to the structured log. It is the
// default channel when email is not configured.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, s model.Summary) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("run summary",
		"run_id", s.RunID,
		"status", s.Status,
		"stage", s.StageReached,
		"reason", s.Reason,
		"rows_read", s.RowsRead,
		"rows_dropped", s.RowsDropped,
		"duplicates_skipped", s.DuplicatesSkipped,
		"records_appended", s.RecordsAppended,
		"total_records", s.TotalRecords,
		"max_period", model.FormatPeriod(s.MaxPeriod),
		"duration", s.Duration(),
	)
	return nil
}

// Subject renders the notification subject line for a summary.
func Subject(s model.Summary) string {
	return fmt.Sprintf("Freight Import Data Pipeline - %s", strings.ToUpper(s.Status))
}

// Body renders the plain-text notification body.
func Body(s model.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s finished with status %s.\n\n", s.RunID, s.Status)
	fmt.Fprintf(&b, "Started:  %s\n", s.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Finished: %s\n", s.FinishedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Duration: %s\n", s.Duration().Round(time.Millisecond))
	fmt.Fprintf(&b, "Stage reached: %s\n", s.StageReached)
	if s.Reason != "" {
		fmt.Fprintf(&b, "Reason: %s\n", s.Reason)
	}

	if s.Status == model.StatusSucceeded {
		fmt.Fprintf(&b, "\nRows read:          %d\n", s.RowsRead)
		fmt.Fprintf(&b, "Rows dropped:       %d\n", s.RowsDropped)
		if len(s.DropReasons) > 0 {
			reasons := make([]string, 0, len(s.DropReasons))
			for r := range s.DropReasons {
				reasons = append(reasons, r)
			}
			sort.Strings(reasons)
			for _, r := range reasons {
				fmt.Fprintf(&b, "  %-18s%d\n", r+":", s.DropReasons[r])
			}
		}
		fmt.Fprintf(&b, "Units flagged:      %d\n", s.UnitsFlagged)
		fmt.Fprintf(&b, "Duplicates skipped: %d\n", s.DuplicatesSkipped)
		fmt.Fprintf(&b, "Records appended:   %d\n", s.RecordsAppended)
		fmt.Fprintf(&b, "Total records:      %d\n", s.TotalRecords)
		fmt.Fprintf(&b, "Newest period:      %s\n", model.FormatPeriod(s.MaxPeriod))
		if s.WarehouseSkipped {
			fmt.Fprintf(&b, "Warehouse:          skipped\n")
		} else if s.WarehouseRows > 0 {
			fmt.Fprintf(&b, "Warehouse rows:     %d\n", s.WarehouseRows)
		}
	}
	return b.String()
}
