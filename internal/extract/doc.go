// Package extract streams the compressed source payload into bounded
// row batches. The zip is staged to a temporary file (required for
// random access to the archive directory), the single CSV member is
// scanned once, and the period filter is applied during the scan so
// out-of-range rows never accumulate in memory. Staged files are
// removed on every exit path.
package extract
