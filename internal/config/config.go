package config

import "time"

// PipelineConfig is the root configuration for a pipeline run.
type PipelineConfig struct {
	Source    SourceConfig    `yaml:"source"`
	Extract   ExtractConfig   `yaml:"extract"`
	Clean     CleanConfig     `yaml:"clean"`
	Store     StoreConfig     `yaml:"store"`
	Warehouse WarehouseConfig `yaml:"warehouse"`
	Notify    NotifyConfig    `yaml:"notify"`
	Run       RunConfig       `yaml:"run"`
	Log       LogConfig       `yaml:"log"`
}

// SourceConfig describes the remote bulk dataset endpoint.
type SourceConfig struct {
	URL          string        `yaml:"url"`
	Timeout      time.Duration `yaml:"timeout"`       // per-request timeout
	MaxRetries   int           `yaml:"max_retries"`   // attempts beyond the first
	RetryBackoff time.Duration `yaml:"retry_backoff"` // base backoff
	UserAgent    string        `yaml:"user_agent"`
	SampleRows   int           `yaml:"sample_rows"` // secondary change-check sample
}

// ExtractConfig bounds the chunked extraction.
type ExtractConfig struct {
	Years     []int  `yaml:"years"`      // period filter; empty means all
	ChunkSize int    `yaml:"chunk_size"` // max rows held in memory per batch
	TempDir   string `yaml:"temp_dir"`   // staging area for the downloaded payload
}

// CleanConfig holds the cleaner's drop thresholds. Values below a
// threshold drop the row; the zero defaults reject only negatives.
type CleanConfig struct {
	MinWeight   float64 `yaml:"min_weight"`
	MinValueFOB float64 `yaml:"min_value_fob"`
	MinValueCIF float64 `yaml:"min_value_cif"`
}

// StoreConfig locates the durable object sink.
type StoreConfig struct {
	Dir              string        `yaml:"dir"`
	DatasetObject    string        `yaml:"dataset_object"`
	CheckpointObject string        `yaml:"checkpoint_object"`
	LeaseObject      string        `yaml:"lease_object"`
	LeaseTTL         time.Duration `yaml:"lease_ttl"` // stale-lease takeover age
}

// WarehouseConfig describes the analytical query sink.
type WarehouseConfig struct {
	Enabled bool     `yaml:"enabled"`
	Table   string   `yaml:"table"`
	DB      DBConfig `yaml:"db"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// NotifyConfig configures the run-summary notification channel.
type NotifyConfig struct {
	Enabled  bool     `yaml:"enabled"`
	SMTPHost string   `yaml:"smtp_host"`
	SMTPPort int      `yaml:"smtp_port"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
	Password string   `yaml:"password"`
}

// RunConfig holds orchestration settings.
type RunConfig struct {
	ContinueOnError bool          `yaml:"continue_on_error"`
	Interval        time.Duration `yaml:"interval"` // scheduler period; 0 = run once
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
}
