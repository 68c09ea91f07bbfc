package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *PipelineConfig) Validate() error {
	if c.Source.URL == "" {
		return errors.New("source.url is required")
	}
	if !strings.HasPrefix(c.Source.URL, "http://") && !strings.HasPrefix(c.Source.URL, "https://") {
		return fmt.Errorf("source.url must be an http(s) endpoint, got %q", c.Source.URL)
	}
	if c.Source.SampleRows < 1 {
		return errors.New("source.sample_rows must be >= 1")
	}
	if c.Source.MaxRetries < 0 {
		return fmt.Errorf("source.max_retries must be >= 0, got %d", c.Source.MaxRetries)
	}
	if c.Source.RetryBackoff <= 0 {
		return fmt.Errorf("source.retry_backoff must be positive, got %s", c.Source.RetryBackoff)
	}

	if c.Extract.ChunkSize < 1 {
		return errors.New("extract.chunk_size must be >= 1")
	}
	for _, y := range c.Extract.Years {
		if y < 1900 || y > 2200 {
			return fmt.Errorf("extract.years contains implausible year %d", y)
		}
	}

	if c.Store.Dir == "" {
		return errors.New("store.dir is required")
	}
	if c.Store.LeaseTTL <= 0 {
		return errors.New("store.lease_ttl must be positive")
	}

	if c.Warehouse.Enabled {
		if err := c.Warehouse.DB.validate("warehouse.db"); err != nil {
			return err
		}
		if c.Warehouse.Table == "" {
			return errors.New("warehouse.table is required")
		}
	}

	if c.Notify.Enabled {
		if c.Notify.SMTPHost == "" {
			return errors.New("notify.smtp_host is required")
		}
		if c.Notify.From == "" {
			return errors.New("notify.from is required")
		}
		if len(c.Notify.To) == 0 {
			return errors.New("notify.to is required")
		}
		if c.Notify.SMTPPort < 1 || c.Notify.SMTPPort > 65535 {
			return fmt.Errorf("notify.smtp_port must be between 1 and 65535, got %d", c.Notify.SMTPPort)
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
