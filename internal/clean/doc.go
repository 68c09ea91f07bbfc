// Package clean normalizes raw extracted rows into model.Record
// values. It validates the source schema, maps units onto the
// controlled vocabulary, enforces numeric thresholds, and computes
// the derived value fields. Rows that cannot be normalized are
// dropped with a reason rather than failing the run.
package clean
