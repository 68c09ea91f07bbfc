package model

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"
)

// TransportMode is the normalized mode of transport for an import.
type TransportMode string

const (
	ModeAir   TransportMode = "air"
	ModeSea   TransportMode = "sea"
	ModePost  TransportMode = "post"
	ModeOther TransportMode = "other"
)

// ParseTransportMode maps a raw mode description onto the controlled
// vocabulary. Unrecognized descriptions collapse to ModeOther.
func ParseTransportMode(raw string) TransportMode {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(s, "air"):
		return ModeAir
	case strings.Contains(s, "sea"), strings.Contains(s, "ship"):
		return ModeSea
	case strings.Contains(s, "post"), strings.Contains(s, "mail"):
		return ModePost
	default:
		return ModeOther
	}
}

// Record is one normalized import observation. Records are created by
// the cleaner and immutable afterwards; the merger only ever appends.
type Record struct {
	Year        int
	MonthNumber int    // 1-12
	Month       string // month name ("January")

	TransportMode   TransportMode
	CommodityCode   string // hierarchical HS classification
	OriginPort      string
	DestinationPort string
	State           string
	CountryCode     string

	UnitOfQuantity string
	UnitFlagged    bool // unit was not in the synonym table

	Weight   decimal.Decimal // gross weight, tonnes
	ValueFOB decimal.Decimal
	ValueCIF decimal.Decimal
	Quantity decimal.Decimal

	// Derived fields. The per-tonne values are null when the weight
	// denominator is zero.
	ValuePerTonneFOB     decimal.NullDecimal
	ValuePerTonneCIF     decimal.NullDecimal
	InsuranceFreightCost decimal.Decimal
}

// Period returns the record's period as YYYYMM for ordering and
// comparison against the checkpoint.
func (r Record) Period() int {
	return r.Year*100 + r.MonthNumber
}

// Key renders the composite identity tuple as canonical text. Two
// records with equal keys are the same observation.
func (r Record) Key() string {
	parts := []string{
		fmt.Sprintf("%04d%02d", r.Year, r.MonthNumber),
		string(r.TransportMode),
		r.CommodityCode,
		r.OriginPort,
		r.DestinationPort,
		r.CountryCode,
		r.Weight.String(),
		r.ValueFOB.String(),
		r.ValueCIF.String(),
		r.Quantity.String(),
	}
	return strings.Join(parts, "|")
}

// KeyHash returns the xxhash64 of the composite key. The merge index
// stores hashes rather than key strings to bound memory.
func (r Record) KeyHash() uint64 {
	return xxhash.Sum64String(r.Key())
}

// FormatPeriod renders a YYYYMM period for logs and summaries.
func FormatPeriod(p int) string {
	if p <= 0 {
		return "none"
	}
	return fmt.Sprintf("%04d-%02d", p/100, p%100)
}
