package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("DATABASE_PATH")
	os.Unsetenv("DATA_DIR")
	os.Unsetenv("STORE_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.StoreKey != DefaultStoreKey {
		t.Errorf("expected default store key %q, got %q", DefaultStoreKey, cfg.StoreKey)
	}
	if cfg.CollectedBy != "Lab Technician" {
		t.Errorf("expected default collector, got %q", cfg.CollectedBy)
	}
	if cfg.PageSize != 5 {
		t.Errorf("expected default page size 5, got %d", cfg.PageSize)
	}
	if !cfg.SeedOnEmpty {
		t.Error("expected SEED_ON_EMPTY to default to true")
	}
	want := filepath.Join("./data", "pathoreport.db")
	if cfg.DatabasePath != want {
		t.Errorf("expected database path %q, got %q", want, cfg.DatabasePath)
	}
}

func TestLoad_WithDatabasePath(t *testing.T) {
	os.Setenv("DATABASE_PATH", "/tmp/labs.db")
	defer os.Unsetenv("DATABASE_PATH")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DatabasePath != "/tmp/labs.db" {
		t.Errorf("expected DATABASE_PATH to be set, got %s", cfg.DatabasePath)
	}
}

func TestLoad_CORSOrigins(t *testing.T) {
	os.Setenv("CORS_ORIGINS", "http://a.local,http://b.local")
	defer os.Unsetenv("CORS_ORIGINS")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.CORSOrigins)
	}
}

func TestConfig_IsDev(t *testing.T) {
	c := &Config{Env: "development"}
	if !c.IsDev() {
		t.Error("expected IsDev() to return true for development")
	}

	c.Env = "production"
	if c.IsDev() {
		t.Error("expected IsDev() to return false for production")
	}
	if !c.IsProduction() {
		t.Error("expected IsProduction() to return true for production")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{Port: "8000", StoreKey: "k", DatabasePath: "x.db", PageSize: 5}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"empty store key", func(c *Config) { c.StoreKey = "  " }},
		{"missing database path", func(c *Config) { c.DatabasePath = "" }},
		{"zero page size", func(c *Config) { c.PageSize = 0 }},
		{"non-numeric port", func(c *Config) { c.Port = "http" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
