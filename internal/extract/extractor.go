package extract

import (
	"archive/zip"
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/freightdata/pipeline/internal/retry"
	"github.com/freightdata/pipeline/internal/source"
)

// Config bounds the extraction.
type Config struct {
	ChunkSize int
	TempDir   string // "" means the system temp dir
	Retry     retry.Policy
}

// Stats summarizes one scan of the payload.
type Stats struct {
	RowsRead  int // data rows seen, excluding the header
	Filtered  int // rows outside the period filter
	Malformed int // unparseable CSV lines skipped
}

// Extractor downloads and chunks the source payload.
type Extractor struct {
	cfg    Config
	client *source.Client
	logger *slog.Logger
}

// New creates an Extractor.
func New(client *source.Client, cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{cfg: cfg, client: client, logger: logger}
}

// Fetch downloads the payload (retrying transient failures) and opens
// the archive. The caller must Close the returned Payload, which
// removes the staged file.
func (e *Extractor) Fetch(ctx context.Context) (*Payload, error) {
	var path string
	err := e.cfg.Retry.Do(ctx, e.logger, "download payload", func() error {
		var derr error
		path, derr = e.client.Download(ctx, e.cfg.TempDir)
		return derr
	})
	if err != nil {
		return nil, err
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("open payload archive: %w", err)
	}

	var member *zip.File
	for _, f := range zr.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			member = f
			break
		}
	}
	if member == nil {
		zr.Close()
		os.Remove(path)
		return nil, errors.New("extract: no csv member in payload archive")
	}

	return &Payload{path: path, zr: zr, member: member, logger: e.logger}, nil
}

// Payload is an opened, staged source archive.
type Payload struct {
	path   string
	zr     *zip.ReadCloser
	member *zip.File
	logger *slog.Logger
}

// Close releases the archive and removes the staged file.
func (p *Payload) Close() error {
	err := p.zr.Close()
	if rmErr := os.Remove(p.path); err == nil {
		err = rmErr
	}
	return err
}

// Scan reads the CSV member once, applying the year filter during
// decompression, and delivers batches of at most chunkSize rows to fn
// in order. Unparseable lines are skipped and counted; a header
// without a month column is fatal since the period filter and the
// cleaner both depend on it.
func (p *Payload) Scan(ctx context.Context, years []int, chunkSize int, fn func(*Batch) error) (Stats, error) {
	var stats Stats

	rc, err := p.member.Open()
	if err != nil {
		return stats, fmt.Errorf("open csv member: %w", err)
	}
	defer rc.Close()

	r := csv.NewReader(bufio.NewReaderSize(rc, 256<<10))
	rawHeader, err := r.Read()
	if err != nil {
		return stats, fmt.Errorf("read csv header: %w", err)
	}
	header := NewHeader(rawHeader)

	monthIdx, ok := header.Index("month")
	if !ok {
		return stats, errors.New("extract: source csv has no month column")
	}

	yearSet := make(map[int]bool, len(years))
	for _, y := range years {
		yearSet[y] = true
	}

	rows := make([][]string, 0, chunkSize)
	seq := 0
	emit := func() error {
		if len(rows) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		b := &Batch{Header: header, Rows: rows, Seq: seq}
		seq++
		rows = make([][]string, 0, chunkSize)
		return fn(b)
	}

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			stats.Malformed++
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("read csv row: %w", err)
		}

		stats.RowsRead++
		if len(yearSet) > 0 {
			year, ok := ParseYear(rec[monthIdx])
			if !ok || !yearSet[year] {
				stats.Filtered++
				continue
			}
		}

		rows = append(rows, rec)
		if len(rows) >= chunkSize {
			if err := emit(); err != nil {
				return stats, err
			}
		}
	}

	if err := emit(); err != nil {
		return stats, err
	}

	p.logger.Info("payload scanned",
		"rows", stats.RowsRead,
		"filtered", stats.Filtered,
		"malformed", stats.Malformed,
		"batches", seq,
	)
	return stats, nil
}

// SampleMaxPeriod downloads the payload and scans at most maxRows rows
// for the newest period. It backs the change detector's secondary
// check when the fingerprint is unreliable.
//
// The download is not bounded: the zip central directory sits at the
// end of the archive, so the whole payload must land on disk before
// any member can be opened. maxRows caps the decompress-and-parse
// work, not the transfer. A future Range probe for the directory could
// trim the transfer too, but the monthly payload is small enough that
// the extra round trips have not been worth it.
func (e *Extractor) SampleMaxPeriod(ctx context.Context, maxRows int) (int, error) {
	p, err := e.Fetch(ctx)
	if err != nil {
		return 0, err
	}
	defer p.Close()

	rc, err := p.member.Open()
	if err != nil {
		return 0, fmt.Errorf("open csv member: %w", err)
	}
	defer rc.Close()

	r := csv.NewReader(bufio.NewReaderSize(rc, 64<<10))
	rawHeader, err := r.Read()
	if err != nil {
		return 0, fmt.Errorf("read csv header: %w", err)
	}
	header := NewHeader(rawHeader)
	monthIdx, ok := header.Index("month")
	if !ok {
		return 0, errors.New("extract: source csv has no month column")
	}

	maxPeriod := 0
	for read := 0; read < maxRows; read++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("read csv row: %w", err)
		}
		if year, month, _, ok := ParsePeriod(rec[monthIdx]); ok {
			if p := year*100 + month; p > maxPeriod {
				maxPeriod = p
			}
		}
	}

	if maxPeriod == 0 {
		return 0, errors.New("extract: no parsable periods in sample")
	}
	return maxPeriod, nil
}
