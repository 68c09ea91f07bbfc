// Package dataset reads and writes the canonical merged dataset as
// CSV. The column set and ordering are fixed so that the checkpoint's
// record count and the merge index can be rebuilt from any copy of
// the file.
package dataset
