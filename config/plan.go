package config

import "fmt"

// SnapshotConfig locates the plant description.
type SnapshotConfig struct {
	Path string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *SnapshotConfig) SetDefaults() {
	if c.Path == "" {
		c.Path = "plant.yaml"
	}
}

// YearConfig controls financial-year runs.
type YearConfig struct {
	// Concurrency bounds the months solved in parallel.
	Concurrency int `json:"concurrency"`
}

// SetDefaults applies sane defaults.
func (c *YearConfig) SetDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
}

// Validate checks mandatory fields.
func (c YearConfig) Validate() error {
	if c.Concurrency > 12 {
		return fmt.Errorf("year.concurrency must be at most 12, got %d", c.Concurrency)
	}
	return nil
}
