package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/freightdata/pipeline/internal/model"
)

// Columns is the canonical dataset schema, in file order.
var Columns = []string{
	"year",
	"month_number",
	"month",
	"transport_mode",
	"commodity_code",
	"origin_port",
	"destination_port",
	"state",
	"country_code",
	"unit_quantity",
	"unit_flagged",
	"quantity",
	"weight",
	"value_fob",
	"value_cif",
	"value_per_tonne_fob",
	"value_per_tonne_cif",
	"insurance_freight_cost",
}

// Writer streams records to CSV, emitting the header lazily on the
// first record so an empty dataset is an empty file.
type Writer struct {
	w           *csv.Writer
	wroteHeader bool
}

// NewWriter wraps w in a dataset Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: csv.NewWriter(w)}
}

// Write appends one record.
func (w *Writer) Write(rec model.Record) error {
	if !w.wroteHeader {
		if err := w.w.Write(Columns); err != nil {
			return fmt.Errorf("dataset: write header: %w", err)
		}
		w.wroteHeader = true
	}
	row := []string{
		strconv.Itoa(rec.Year),
		strconv.Itoa(rec.MonthNumber),
		rec.Month,
		string(rec.TransportMode),
		rec.CommodityCode,
		rec.OriginPort,
		rec.DestinationPort,
		rec.State,
		rec.CountryCode,
		rec.UnitOfQuantity,
		strconv.FormatBool(rec.UnitFlagged),
		rec.Quantity.String(),
		rec.Weight.String(),
		rec.ValueFOB.String(),
		rec.ValueCIF.String(),
		nullDecimalString(rec.ValuePerTonneFOB),
		nullDecimalString(rec.ValuePerTonneCIF),
		rec.InsuranceFreightCost.String(),
	}
	if err := w.w.Write(row); err != nil {
		return fmt.Errorf("dataset: write record: %w", err)
	}
	return nil
}

// Flush commits buffered rows to the underlying writer.
func (w *Writer) Flush() error {
	w.w.Flush()
	return w.w.Error()
}

// Reader streams records from a dataset file.
type Reader struct {
	r      *csv.Reader
	index  map[string]int
	opened bool
}

// NewReader wraps r in a dataset Reader. The header is consumed on
// the first Read.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	return &Reader{r: cr}
}

// Read returns the next record, or io.EOF at the end of the dataset.
func (r *Reader) Read() (model.Record, error) {
	var rec model.Record

	if !r.opened {
		header, err := r.r.Read()
		if err == io.EOF {
			// Empty file: a dataset with no records.
			return rec, io.EOF
		}
		if err != nil {
			return rec, fmt.Errorf("dataset: read header: %w", err)
		}
		r.index = make(map[string]int, len(header))
		for i, name := range header {
			r.index[name] = i
		}
		for _, col := range Columns {
			if _, ok := r.index[col]; !ok {
				return rec, fmt.Errorf("dataset: header missing column %q", col)
			}
		}
		r.opened = true
	}

	row, err := r.r.Read()
	if err == io.EOF {
		return rec, io.EOF
	}
	if err != nil {
		return rec, fmt.Errorf("dataset: read record: %w", err)
	}

	field := func(name string) string { return row[r.index[name]] }

	if rec.Year, err = strconv.Atoi(field("year")); err != nil {
		return rec, fmt.Errorf("dataset: bad year %q: %w", field("year"), err)
	}
	if rec.MonthNumber, err = strconv.Atoi(field("month_number")); err != nil {
		return rec, fmt.Errorf("dataset: bad month_number %q: %w", field("month_number"), err)
	}
	rec.Month = field("month")
	rec.TransportMode = model.TransportMode(field("transport_mode"))
	rec.CommodityCode = field("commodity_code")
	rec.OriginPort = field("origin_port")
	rec.DestinationPort = field("destination_port")
	rec.State = field("state")
	rec.CountryCode = field("country_code")
	rec.UnitOfQuantity = field("unit_quantity")
	if rec.UnitFlagged, err = strconv.ParseBool(field("unit_flagged")); err != nil {
		return rec, fmt.Errorf("dataset: bad unit_flagged %q: %w", field("unit_flagged"), err)
	}

	if rec.Quantity, err = decimal.NewFromString(field("quantity")); err != nil {
		return rec, fmt.Errorf("dataset: bad quantity %q: %w", field("quantity"), err)
	}
	if rec.Weight, err = decimal.NewFromString(field("weight")); err != nil {
		return rec, fmt.Errorf("dataset: bad weight %q: %w", field("weight"), err)
	}
	if rec.ValueFOB, err = decimal.NewFromString(field("value_fob")); err != nil {
		return rec, fmt.Errorf("dataset: bad value_fob %q: %w", field("value_fob"), err)
	}
	if rec.ValueCIF, err = decimal.NewFromString(field("value_cif")); err != nil {
		return rec, fmt.Errorf("dataset: bad value_cif %q: %w", field("value_cif"), err)
	}
	if rec.ValuePerTonneFOB, err = parseNullDecimal(field("value_per_tonne_fob")); err != nil {
		return rec, fmt.Errorf("dataset: bad value_per_tonne_fob %q: %w", field("value_per_tonne_fob"), err)
	}
	if rec.ValuePerTonneCIF, err = parseNullDecimal(field("value_per_tonne_cif")); err != nil {
		return rec, fmt.Errorf("dataset: bad value_per_tonne_cif %q: %w", field("value_per_tonne_cif"), err)
	}
	if rec.InsuranceFreightCost, err = decimal.NewFromString(field("insurance_freight_cost")); err != nil {
		return rec, fmt.Errorf("dataset: bad insurance_freight_cost %q: %w", field("insurance_freight_cost"), err)
	}

	return rec, nil
}

func nullDecimalString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

func parseNullDecimal(s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}
