package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	RolePolicyPreserve = "preserve"
	RolePolicyObserved = "observed"
)

// ImportConfig tunes the report import pipeline.
type ImportConfig struct {
	ChunkSize         int           `env:"IMPORT_CHUNK_SIZE" envDefault:"50"`
	Timeout           time.Duration `env:"IMPORT_TIMEOUT" envDefault:"2m"`
	RolePolicy        string        `env:"IMPORT_ROLE_POLICY" envDefault:"preserve"`
	AllowDateFallback bool          `env:"IMPORT_ALLOW_DATE_FALLBACK" envDefault:"false"`
	Timezone          string        `env:"IMPORT_TIMEZONE" envDefault:"UTC"`
	SourceLabel       string        `env:"IMPORT_SOURCE_LABEL" envDefault:"Upload"`
}

func LoadImport() (ImportConfig, error) {
	var cfg ImportConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c ImportConfig) Validate() error {
	if c.ChunkSize < 1 {
		return fmt.Errorf("IMPORT_CHUNK_SIZE must be >= 1, got %d", c.ChunkSize)
	}
	switch c.RolePolicy {
	case RolePolicyPreserve, RolePolicyObserved:
	default:
		return fmt.Errorf("IMPORT_ROLE_POLICY must be %q or %q, got %q", RolePolicyPreserve, RolePolicyObserved, c.RolePolicy)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("IMPORT_TIMEZONE: %w", err)
	}
	return nil
}

// Location returns the configured timezone, falling back to UTC.
func (c ImportConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
