package config

import (
	"testing"
	"time"
)

func TestLoadImportDefaults(t *testing.T) {
	cfg, err := LoadImport()
	if err != nil {
		t.Fatalf("LoadImport() error = %v", err)
	}
	if cfg.ChunkSize != 50 {
		t.Fatalf("ChunkSize = %d, want 50", cfg.ChunkSize)
	}
	if cfg.Timeout != 2*time.Minute {
		t.Fatalf("Timeout = %v, want 2m", cfg.Timeout)
	}
	if cfg.RolePolicy != RolePolicyPreserve {
		t.Fatalf("RolePolicy = %q, want preserve", cfg.RolePolicy)
	}
	if cfg.AllowDateFallback {
		t.Fatal("AllowDateFallback should default to false")
	}
	if cfg.Location() != time.UTC {
		t.Fatalf("Location = %v, want UTC", cfg.Location())
	}
}

func TestLoadImportOverrides(t *testing.T) {
	t.Setenv("IMPORT_CHUNK_SIZE", "10")
	t.Setenv("IMPORT_TIMEOUT", "30s")
	t.Setenv("IMPORT_ROLE_POLICY", "observed")
	t.Setenv("IMPORT_ALLOW_DATE_FALLBACK", "true")
	t.Setenv("IMPORT_SOURCE_LABEL", "nightly")

	cfg, err := LoadImport()
	if err != nil {
		t.Fatalf("LoadImport() error = %v", err)
	}
	if cfg.ChunkSize != 10 || cfg.Timeout != 30*time.Second {
		t.Fatalf("unexpected import config: %+v", cfg)
	}
	if cfg.RolePolicy != RolePolicyObserved || !cfg.AllowDateFallback || cfg.SourceLabel != "nightly" {
		t.Fatalf("unexpected import config: %+v", cfg)
	}
}

func TestLoadImportRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"IMPORT_CHUNK_SIZE":  "0",
		"IMPORT_ROLE_POLICY": "downgrade",
		"IMPORT_TIMEZONE":    "Mars/Olympus",
	}
	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv(k, v)
			if _, err := LoadImport(); err == nil {
				t.Fatalf("LoadImport() with %s=%s expected error", k, v)
			}
		})
	}
}
