package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultSourceURL        = "https://aueprod01ckanstg.blob.core.windows.net/public-catalogue/public/82d5fb9d-61ae-4ddd-873b-5c9501b6b743/imports.csv.zip"
	DefaultSourceTimeout    = 5 * time.Minute
	DefaultMaxRetries       = 3
	DefaultRetryBackoff     = 1 * time.Second
	DefaultUserAgent        = "freight-pipeline/1.0"
	DefaultSampleRows       = 1000
	DefaultChunkSize        = 100_000
	DefaultDatasetObject    = "imports_cleaned.csv"
	DefaultCheckpointObject = "checkpoint.json"
	DefaultLeaseObject      = "pipeline.lease"
	DefaultLeaseTTL         = 2 * time.Hour
	DefaultDBPort           = 5432
	DefaultDBSSLMode        = "prefer"
	DefaultMaxConns         = 10
	DefaultMinConns         = 2
	DefaultWarehouseTable   = "imports"
	DefaultSMTPPort         = 587
	DefaultLogLevel         = "info"
)

func (c *PipelineConfig) applyDefaults() {
	// Source defaults
	if c.Source.URL == "" {
		c.Source.URL = DefaultSourceURL
	}
	if c.Source.Timeout == 0 {
		c.Source.Timeout = DefaultSourceTimeout
	}
	if c.Source.MaxRetries == 0 {
		c.Source.MaxRetries = DefaultMaxRetries
	}
	if c.Source.RetryBackoff == 0 {
		c.Source.RetryBackoff = DefaultRetryBackoff
	}
	if c.Source.UserAgent == "" {
		c.Source.UserAgent = DefaultUserAgent
	}
	if c.Source.SampleRows == 0 {
		c.Source.SampleRows = DefaultSampleRows
	}

	// Extract defaults
	if c.Extract.ChunkSize == 0 {
		c.Extract.ChunkSize = DefaultChunkSize
	}
	if c.Extract.TempDir == "" {
		c.Extract.TempDir = "" // os.TempDir via os.CreateTemp
	}

	// Store defaults
	if c.Store.DatasetObject == "" {
		c.Store.DatasetObject = DefaultDatasetObject
	}
	if c.Store.CheckpointObject == "" {
		c.Store.CheckpointObject = DefaultCheckpointObject
	}
	if c.Store.LeaseObject == "" {
		c.Store.LeaseObject = DefaultLeaseObject
	}
	if c.Store.LeaseTTL == 0 {
		c.Store.LeaseTTL = DefaultLeaseTTL
	}

	// Warehouse defaults
	if c.Warehouse.Table == "" {
		c.Warehouse.Table = DefaultWarehouseTable
	}
	applyDBDefaults(&c.Warehouse.DB)

	// Notify defaults
	if c.Notify.SMTPPort == 0 {
		c.Notify.SMTPPort = DefaultSMTPPort
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
