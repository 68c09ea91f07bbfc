package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Checkpoint records the outcome of the last successful run. It is read
// at the start of every run and replaced atomically only after all
// mandatory stages succeed.
type Checkpoint struct {
	// Fingerprint is the hashed source modification marker
	// (Last-Modified/ETag) observed when the run started. Empty when
	// the source exposed no usable metadata.
	Fingerprint string `json:"fingerprint"`

	// MaxPeriod is the newest period (YYYYMM) in the merged dataset.
	MaxPeriod int `json:"max_period"`

	// RecordCount is the total record count of the merged dataset,
	// used to detect checkpoint/dataset divergence before merging.
	RecordCount int `json:"record_count"`

	RunID string    `json:"run_id"`
	RunAt time.Time `json:"run_at"`
}

// Marshal encodes the checkpoint as JSON.
func (c *Checkpoint) Marshal() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// UnmarshalCheckpoint decodes a stored checkpoint.
func UnmarshalCheckpoint(data []byte) (*Checkpoint, error) {
	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse checkpoint: %w", err)
	}
	return &c, nil
}
