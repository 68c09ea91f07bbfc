package dataset

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/freightdata/pipeline/internal/model"
)

func sampleRecord() model.Record {
	return model.Record{
		Year:            2024,
		MonthNumber:     3,
		Month:           "March",
		TransportMode:   model.ModeSea,
		CommodityCode:   "0101210000",
		OriginPort:      "Shanghai",
		DestinationPort: "Melbourne",
		State:           "VIC",
		CountryCode:     "CN",
		UnitOfQuantity:  "Kilograms",
		Quantity:        decimal.RequireFromString("10.5"),
		Weight:          decimal.RequireFromString("2.5"),
		ValueFOB:        decimal.NewFromInt(1000),
		ValueCIF:        decimal.NewFromInt(1100),
		ValuePerTonneFOB: decimal.NewNullDecimal(
			decimal.NewFromInt(400)),
		ValuePerTonneCIF: decimal.NewNullDecimal(
			decimal.NewFromInt(440)),
		InsuranceFreightCost: decimal.NewFromInt(100),
	}
}

func TestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	want := sampleRecord()
	if err := w.Write(want); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	r := NewReader(&buf)
	got, err := r.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if _, err := r.Read(); err != io.EOF {
		t.Fatalf("expected EOF after one record, got %v", err)
	}

	if got.Key() != want.Key() {
		t.Errorf("key round-trip mismatch:\n got %q\nwant %q", got.Key(), want.Key())
	}
	if got.Month != "March" || got.State != "VIC" {
		t.Errorf("text fields mismatch: %+v", got)
	}
	if !got.ValuePerTonneFOB.Valid || !got.ValuePerTonneFOB.Decimal.Equal(decimal.NewFromInt(400)) {
		t.Errorf("ValuePerTonneFOB = %+v, want 400", got.ValuePerTonneFOB)
	}
}

func TestNullDerivedValues(t *testing.T) {
	rec := sampleRecord()
	rec.Weight = decimal.Zero
	rec.ValuePerTonneFOB = decimal.NullDecimal{}
	rec.ValuePerTonneCIF = decimal.NullDecimal{}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.Write(rec); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	got, err := NewReader(&buf).Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.ValuePerTonneFOB.Valid || got.ValuePerTonneCIF.Valid {
		t.Errorf("derived values should round-trip as null: %+v", got)
	}
}

func TestEmptyFileIsEmptyDataset(t *testing.T) {
	r := NewReader(strings.NewReader(""))
	if _, err := r.Read(); err != io.EOF {
		t.Fatalf("expected EOF for empty file, got %v", err)
	}

	// A writer that saw no records leaves the file empty.
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("empty dataset wrote %d bytes: %q", buf.Len(), buf.String())
	}
}

func TestReaderRejectsForeignHeader(t *testing.T) {
	r := NewReader(strings.NewReader("a,b,c\n1,2,3\n"))
	if _, err := r.Read(); err == nil {
		t.Fatal("expected error for unrecognized header")
	}
}
