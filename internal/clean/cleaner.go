package clean

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/freightdata/pipeline/internal/extract"
	"github.com/freightdata/pipeline/internal/model"
)

// Drop reasons reported in run summaries.
const (
	ReasonBadPeriod      = "bad period"
	ReasonNonNumeric     = "non-numeric"
	ReasonBelowThreshold = "below threshold"
)

// requiredColumns are the normalized source columns the cleaner reads.
// A payload missing any of them cannot be processed.
var requiredColumns = []string{
	"month",
	"mode",
	"commodity_code",
	"country_code",
	"origin_port",
	"destination_port",
	"state",
	"unit_quantity",
	"quantity",
	"weight",
	"value_fob",
	"value_cif",
}

// SchemaError reports required columns absent from the source header.
// It is fatal: the upstream layout changed and no row can be trusted.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("clean: source schema missing columns: %s", strings.Join(e.Missing, ", "))
}

// CheckSchema verifies the header carries every required column.
func CheckSchema(h *extract.Header) error {
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := h.Index(col); !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}

// Config holds the numeric acceptance thresholds. Rows below any
// threshold are dropped; the zero value rejects negative numbers only.
type Config struct {
	MinWeight   decimal.Decimal
	MinValueFOB decimal.Decimal
	MinValueCIF decimal.Decimal
}

// Stats accumulates cleaning outcomes across batches.
type Stats struct {
	Rows      int // rows examined
	Dropped   int
	Reasons   map[string]int // drop reason counts
	Flagged   int            // rows whose unit was outside the synonym table
	Collapsed int            // exact duplicates within one batch, first kept
}

// Cleaner normalizes batches concurrently-safely and tracks stats.
type Cleaner struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	checked bool
	stats   Stats
}

// New creates a Cleaner with the given thresholds.
func New(cfg Config, logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{
		cfg:    cfg,
		logger: logger,
		stats:  Stats{Reasons: make(map[string]int)},
	}
}

// CleanBatch normalizes every row of the batch. The schema is
// validated against the first batch seen; dropped rows are counted
// per reason, never returned as errors. Exact duplicates within the
// batch collapse to the first occurrence; cross-batch duplicates are
// the merger's concern.
func (c *Cleaner) CleanBatch(b *extract.Batch) ([]model.Record, error) {
	c.mu.Lock()
	if !c.checked {
		if err := CheckSchema(b.Header); err != nil {
			c.mu.Unlock()
			return nil, err
		}
		c.checked = true
	}
	c.mu.Unlock()

	out := make([]model.Record, 0, len(b.Rows))
	seen := make(map[uint64]struct{}, len(b.Rows))
	var local Stats
	local.Reasons = make(map[string]int)

	for _, row := range b.Rows {
		local.Rows++
		rec, reason, ok := CleanRow(b.Header, row, c.cfg)
		if !ok {
			local.Dropped++
			local.Reasons[reason]++
			continue
		}
		h := rec.KeyHash()
		if _, dup := seen[h]; dup {
			local.Collapsed++
			continue
		}
		seen[h] = struct{}{}
		if rec.UnitFlagged {
			local.Flagged++
		}
		out = append(out, rec)
	}

	c.mu.Lock()
	c.stats.Rows += local.Rows
	c.stats.Dropped += local.Dropped
	c.stats.Flagged += local.Flagged
	c.stats.Collapsed += local.Collapsed
	for reason, n := range local.Reasons {
		c.stats.Reasons[reason] += n
	}
	c.mu.Unlock()

	return out, nil
}

// Stats returns a snapshot of the accumulated outcomes.
func (c *Cleaner) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.stats
	snap.Reasons = make(map[string]int, len(c.stats.Reasons))
	for k, v := range c.stats.Reasons {
		snap.Reasons[k] = v
	}
	return snap
}

// CleanRow normalizes one raw row. It returns the record and true, or
// a drop reason and false when the row cannot be accepted.
func CleanRow(h *extract.Header, row []string, cfg Config) (model.Record, string, bool) {
	field := func(name string) string {
		i, ok := h.Index(name)
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var rec model.Record

	year, month, monthName, ok := extract.ParsePeriod(field("month"))
	if !ok {
		return rec, ReasonBadPeriod, false
	}
	rec.Year = year
	rec.MonthNumber = month
	rec.Month = monthName

	rec.TransportMode = model.ParseTransportMode(field("mode"))
	rec.CommodityCode = cleanText(field("commodity_code"))
	rec.CountryCode = cleanText(field("country_code"))
	rec.OriginPort = cleanText(field("origin_port"))
	rec.DestinationPort = cleanText(field("destination_port"))
	rec.State = cleanText(field("state"))

	weight, err := parseNumber(field("weight"))
	if err != nil {
		return rec, ReasonNonNumeric, false
	}
	fob, err := parseNumber(field("value_fob"))
	if err != nil {
		return rec, ReasonNonNumeric, false
	}
	cif, err := parseNumber(field("value_cif"))
	if err != nil {
		return rec, ReasonNonNumeric, false
	}
	qty, err := parseNumber(field("quantity"))
	if err != nil {
		return rec, ReasonNonNumeric, false
	}

	if weight.LessThan(cfg.MinWeight) ||
		fob.LessThan(cfg.MinValueFOB) ||
		cif.LessThan(cfg.MinValueCIF) {
		return rec, ReasonBelowThreshold, false
	}

	rec.UnitOfQuantity, rec.UnitFlagged = mapUnit(cleanText(field("unit_quantity")))
	if qty.IsNegative() {
		qty = decimal.Zero
	}
	if rec.UnitOfQuantity == "Number" {
		qty = qty.Round(0)
	}

	rec.Weight = weight
	rec.ValueFOB = fob
	rec.ValueCIF = cif
	rec.Quantity = qty

	if weight.IsPositive() {
		rec.ValuePerTonneFOB = decimal.NewNullDecimal(fob.Div(weight))
		rec.ValuePerTonneCIF = decimal.NewNullDecimal(cif.Div(weight))
	}
	if ifc := cif.Sub(fob); ifc.IsPositive() {
		rec.InsuranceFreightCost = ifc
	} else {
		rec.InsuranceFreightCost = decimal.Zero
	}

	return rec, "", true
}

// cleanText trims and collapses whitespace, strips surrounding quotes,
// and substitutes "Unknown" for the source's assorted null spellings.
func cleanText(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	s = strings.Join(strings.Fields(s), " ")
	switch strings.ToLower(s) {
	case "", "nan", "none", "null", "n/a", "na":
		return "Unknown"
	}
	return s
}

// parseNumber interprets a raw numeric field. Empty means zero, since
// the source leaves absent measurements blank; thousands separators
// are tolerated.
func parseNumber(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	s = strings.ReplaceAll(s, ",", "")
	return decimal.NewFromString(s)
}
