package config

import "github.com/caarlos0/env/v11"

// TestConfig is read by Postgres-backed tests only. KeepSchema leaves the
// per-test schema in place for inspection after a failing run.
type TestConfig struct {
	TestPostgresDSN string `env:"TEST_POSTGRES_DSN,required,notEmpty"`
	KeepSchema      bool   `env:"TEST_KEEP_SCHEMA" envDefault:"false"`
}

func LoadTest() (TestConfig, error) {
	var cfg TestConfig
	err := env.Parse(&cfg)
	return cfg, err
}
