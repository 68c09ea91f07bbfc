package extract

import "strings"

// Header holds the normalized column names of the raw CSV and their
// positions. Names are lowercased with spaces collapsed to underscores
// so lookups are stable across source re-publications.
type Header struct {
	cols  []string
	index map[string]int
}

// NewHeader normalizes raw column names into a Header.
func NewHeader(raw []string) *Header {
	h := &Header{
		cols:  make([]string, len(raw)),
		index: make(map[string]int, len(raw)),
	}
	for i, name := range raw {
		n := NormalizeColumn(name)
		h.cols[i] = n
		if _, dup := h.index[n]; !dup {
			h.index[n] = i
		}
	}
	return h
}

// NormalizeColumn lowercases a column name and replaces interior
// whitespace with underscores.
func NormalizeColumn(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.Fields(n), "_")
}

// Index returns the position of a normalized column name.
func (h *Header) Index(name string) (int, bool) {
	i, ok := h.index[name]
	return i, ok
}

// Columns returns the normalized column names in file order.
func (h *Header) Columns() []string {
	return h.cols
}

// Batch is one bounded chunk of raw rows sharing a header. Seq is the
// zero-based position of the batch in the scan; batches are delivered
// in Seq order.
type Batch struct {
	Header *Header
	Rows   [][]string
	Seq    int
}

// Field returns the named column of a row, or "" when absent.
func (b *Batch) Field(row []string, name string) string {
	i, ok := b.Header.Index(name)
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}
