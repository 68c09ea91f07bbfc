package warehouse

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freightdata/pipeline/internal/dataset"
	"github.com/freightdata/pipeline/internal/model"
)

// Publisher loads the dataset into a PostgreSQL table.
type Publisher struct {
	db     *pgxpool.Pool
	table  string
	logger *slog.Logger
}

// NewPublisher creates a Publisher targeting the given table.
func NewPublisher(db *pgxpool.Pool, table string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{db: db, table: table, logger: logger}
}

// EnsureSchema creates the warehouse table and indexes if absent.
func (p *Publisher) EnsureSchema(ctx context.Context) error {
	table := pgx.Identifier{p.table}.Sanitize()
	ddl := fmt.Sprintf(schemaDDL,
		table,
		pgx.Identifier{p.table + "_period_idx"}.Sanitize(), table,
		pgx.Identifier{p.table + "_commodity_idx"}.Sanitize(), table,
	)
	if _, err := p.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("warehouse: ensure schema: %w", err)
	}
	return nil
}

// Publish replaces the table contents with the records streamed from
// r, in one transaction. It returns the number of rows loaded.
func (p *Publisher) Publish(ctx context.Context, r *dataset.Reader) (int64, error) {
	start := time.Now()
	table := pgx.Identifier{p.table}.Sanitize()

	tx, err := p.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("warehouse: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// Stage into a transaction-scoped table so the target is swapped
	// in a single statement at the end.
	staging := pgx.Identifier{p.table + "_staging"}.Sanitize()
	createStaging := fmt.Sprintf(
		"CREATE TEMPORARY TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		staging, table,
	)
	if _, err := tx.Exec(ctx, createStaging); err != nil {
		return 0, fmt.Errorf("warehouse: create staging table: %w", err)
	}

	src := &recordSource{r: r}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{p.table + "_staging"}, columns, src)
	if err != nil {
		return 0, fmt.Errorf("warehouse: copy dataset: %w", err)
	}

	if _, err := tx.Exec(ctx, "TRUNCATE "+table); err != nil {
		return 0, fmt.Errorf("warehouse: truncate: %w", err)
	}
	swap := fmt.Sprintf("INSERT INTO %s SELECT * FROM %s", table, staging)
	if _, err := tx.Exec(ctx, swap); err != nil {
		return 0, fmt.Errorf("warehouse: swap staging: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("warehouse: commit: %w", err)
	}

	p.logger.Info("warehouse published",
		"table", p.table,
		"rows", n,
		"duration", time.Since(start),
	)
	return n, nil
}

// recordSource adapts a dataset.Reader to pgx.CopyFromSource.
type recordSource struct {
	r   *dataset.Reader
	row []any
	err error
}

func (s *recordSource) Next() bool {
	rec, err := s.r.Read()
	if err == io.EOF {
		return false
	}
	if err != nil {
		s.err = err
		return false
	}
	s.row = recordValues(rec)
	return true
}

func (s *recordSource) Values() ([]any, error) { return s.row, nil }

func (s *recordSource) Err() error { return s.err }

// recordValues renders a record as COPY values in columns order.
// Measures become float64 for the DOUBLE PRECISION columns; null
// derived values become nil.
func recordValues(rec model.Record) []any {
	var perTonneFOB, perTonneCIF *float64
	if rec.ValuePerTonneFOB.Valid {
		v := rec.ValuePerTonneFOB.Decimal.InexactFloat64()
		perTonneFOB = &v
	}
	if rec.ValuePerTonneCIF.Valid {
		v := rec.ValuePerTonneCIF.Decimal.InexactFloat64()
		perTonneCIF = &v
	}
	return []any{
		rec.Year,
		rec.MonthNumber,
		rec.Month,
		string(rec.TransportMode),
		rec.CommodityCode,
		rec.OriginPort,
		rec.DestinationPort,
		rec.State,
		rec.CountryCode,
		rec.UnitOfQuantity,
		rec.UnitFlagged,
		rec.Quantity.InexactFloat64(),
		rec.Weight.InexactFloat64(),
		rec.ValueFOB.InexactFloat64(),
		rec.ValueCIF.InexactFloat64(),
		perTonneFOB,
		perTonneCIF,
		rec.InsuranceFreightCost.InexactFloat64(),
	}
}
