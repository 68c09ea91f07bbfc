package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseTransportMode(t *testing.T) {
	tests := []struct {
		raw  string
		want TransportMode
	}{
		{"Air", ModeAir},
		{"AIR FREIGHT", ModeAir},
		{"Sea", ModeSea},
		{"Ship stores", ModeSea},
		{"Post", ModePost},
		{"International Mail", ModePost},
		{"Pipeline", ModeOther},
		{"", ModeOther},
	}
	for _, tt := range tests {
		if got := ParseTransportMode(tt.raw); got != tt.want {
			t.Errorf("ParseTransportMode(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestRecordKeyStable(t *testing.T) {
	r := Record{
		Year:            2024,
		MonthNumber:     7,
		TransportMode:   ModeSea,
		CommodityCode:   "8471300000",
		OriginPort:      "Shanghai",
		DestinationPort: "Melbourne",
		CountryCode:     "CN",
		Weight:          decimal.RequireFromString("12.5"),
		ValueFOB:        decimal.RequireFromString("1000"),
		ValueCIF:        decimal.RequireFromString("1100"),
		Quantity:        decimal.RequireFromString("3"),
	}

	want := "202407|sea|8471300000|Shanghai|Melbourne|CN|12.5|1000|1100|3"
	if got := r.Key(); got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}

	// Equal tuples hash equally even when built independently.
	other := r
	other.State = "VIC" // not part of the identity tuple
	if r.KeyHash() != other.KeyHash() {
		t.Error("KeyHash() changed with a non-key field")
	}
}

func TestRecordKeyDistinguishes(t *testing.T) {
	base := Record{
		Year: 2024, MonthNumber: 7,
		TransportMode: ModeAir,
		CommodityCode: "0101",
		Weight:        decimal.NewFromInt(1),
		ValueFOB:      decimal.NewFromInt(10),
		ValueCIF:      decimal.NewFromInt(11),
		Quantity:      decimal.NewFromInt(1),
	}

	changed := base
	changed.ValueFOB = decimal.NewFromInt(20)
	if base.KeyHash() == changed.KeyHash() {
		t.Error("records with different FOB values share a key hash")
	}
}

func TestPeriod(t *testing.T) {
	r := Record{Year: 2025, MonthNumber: 3}
	if got := r.Period(); got != 202503 {
		t.Errorf("Period() = %d, want 202503", got)
	}
	if got := FormatPeriod(202503); got != "2025-03" {
		t.Errorf("FormatPeriod(202503) = %q, want %q", got, "2025-03")
	}
	if got := FormatPeriod(0); got != "none" {
		t.Errorf("FormatPeriod(0) = %q, want %q", got, "none")
	}
}
