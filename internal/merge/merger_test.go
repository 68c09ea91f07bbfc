package merge

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/freightdata/pipeline/internal/dataset"
	"github.com/freightdata/pipeline/internal/model"
)

func rec(period int, commodity string, fob int64) model.Record {
	return model.Record{
		Year:                 period / 100,
		MonthNumber:          period % 100,
		Month:                "January",
		TransportMode:        model.ModeSea,
		CommodityCode:        commodity,
		OriginPort:           "Shanghai",
		DestinationPort:      "Melbourne",
		State:                "VIC",
		CountryCode:          "CN",
		UnitOfQuantity:       "Kilograms",
		Quantity:             decimal.NewFromInt(1),
		Weight:               decimal.NewFromInt(1),
		ValueFOB:             decimal.NewFromInt(fob),
		ValueCIF:             decimal.NewFromInt(fob + 10),
		InsuranceFreightCost: decimal.NewFromInt(10),
	}
}

// spool writes the given records through a fresh dataset file.
func spool(t *testing.T, recs ...model.Record) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	w := dataset.NewWriter(&buf)
	for _, r := range recs {
		if err := w.Write(r); err != nil {
			t.Fatalf("write spool: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush spool: %v", err)
	}
	return &buf
}

func readAll(t *testing.T, buf *bytes.Buffer) []model.Record {
	t.Helper()
	r := dataset.NewReader(bytes.NewReader(buf.Bytes()))
	var out []model.Record
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("read spool: %v", err)
		}
		out = append(out, rec)
	}
}

func TestMergeAppendsNewRecords(t *testing.T) {
	existing := spool(t, rec(202401, "0101", 100), rec(202401, "0202", 200))

	var out bytes.Buffer
	w := dataset.NewWriter(&out)
	m := New(nil)
	if err := m.LoadExisting(dataset.NewReader(existing), w, 2); err != nil {
		t.Fatalf("LoadExisting failed: %v", err)
	}

	// A fresh month plus one record already present.
	batch := []model.Record{
		rec(202402, "0101", 150),
		rec(202401, "0101", 100),
	}
	if err := m.MergeBatch(w, batch); err != nil {
		t.Fatalf("MergeBatch failed: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	res := m.Result()
	if res.Existing != 2 || res.Appended != 1 || res.Duplicates != 1 {
		t.Errorf("Result = %+v, want Existing 2, Appended 1, Duplicates 1", res)
	}
	if res.Total() != 3 {
		t.Errorf("Total = %d, want 3", res.Total())
	}
	if res.MaxPeriod != 202402 {
		t.Errorf("MaxPeriod = %d, want 202402", res.MaxPeriod)
	}

	got := readAll(t, &out)
	if len(got) != 3 {
		t.Fatalf("merged dataset has %d records, want 3", len(got))
	}
	// Existing records precede appended ones.
	if got[0].CommodityCode != "0101" || got[2].Period() != 202402 {
		t.Errorf("merged order unexpected: %+v", got)
	}
}

func TestMergeIdempotent(t *testing.T) {
	batch := []model.Record{rec(202401, "0101", 100), rec(202401, "0202", 200)}

	// First run over an empty dataset.
	var first bytes.Buffer
	w1 := dataset.NewWriter(&first)
	m1 := New(nil)
	if err := m1.LoadExisting(dataset.NewReader(bytes.NewReader(nil)), w1, -1); err != nil {
		t.Fatalf("LoadExisting failed: %v", err)
	}
	if err := m1.MergeBatch(w1, batch); err != nil {
		t.Fatalf("MergeBatch failed: %v", err)
	}
	w1.Flush()

	// Second run replays the same batch over the first run's output.
	var second bytes.Buffer
	w2 := dataset.NewWriter(&second)
	m2 := New(nil)
	if err := m2.LoadExisting(dataset.NewReader(bytes.NewReader(first.Bytes())), w2, m1.Result().Total()); err != nil {
		t.Fatalf("LoadExisting failed: %v", err)
	}
	if err := m2.MergeBatch(w2, batch); err != nil {
		t.Fatalf("MergeBatch failed: %v", err)
	}
	w2.Flush()

	res := m2.Result()
	if res.Appended != 0 {
		t.Errorf("replay appended %d records, want 0", res.Appended)
	}
	if res.Duplicates != len(batch) {
		t.Errorf("replay duplicates = %d, want %d", res.Duplicates, len(batch))
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Error("replaying the same batch changed the dataset")
	}
}

func TestMergeKeepsFirstOccurrence(t *testing.T) {
	a := rec(202401, "0101", 100)
	a.State = "VIC"
	b := a
	b.State = "NSW" // same composite key, key excludes state

	var out bytes.Buffer
	w := dataset.NewWriter(&out)
	m := New(nil)
	if err := m.MergeBatch(w, []model.Record{a, b}); err != nil {
		t.Fatalf("MergeBatch failed: %v", err)
	}
	w.Flush()

	got := readAll(t, &out)
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if got[0].State != "VIC" {
		t.Errorf("kept record State = %q, want first occurrence %q", got[0].State, "VIC")
	}
}

func TestLoadExistingCountMismatch(t *testing.T) {
	existing := spool(t, rec(202401, "0101", 100))

	m := New(nil)
	var out bytes.Buffer
	err := m.LoadExisting(dataset.NewReader(existing), dataset.NewWriter(&out), 5)
	if !errors.Is(err, ErrInconsistent) {
		t.Fatalf("err = %v, want ErrInconsistent", err)
	}
}

func TestLoadExistingDuplicateKey(t *testing.T) {
	dup := rec(202401, "0101", 100)
	existing := spool(t, dup, dup)

	m := New(nil)
	var out bytes.Buffer
	err := m.LoadExisting(dataset.NewReader(existing), dataset.NewWriter(&out), 2)
	if !errors.Is(err, ErrInconsistent) {
		t.Fatalf("err = %v, want ErrInconsistent", err)
	}
}
