package config

import (
	"fmt"
	"log"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port         string   `mapstructure:"PORT"`
	Env          string   `mapstructure:"ENV"`
	DataDir      string   `mapstructure:"DATA_DIR"`
	DatabasePath string   `mapstructure:"DATABASE_PATH"`
	StoreKey     string   `mapstructure:"STORE_KEY"`
	CORSOrigins  []string `mapstructure:"CORS_ORIGINS"`
	CollectedBy  string   `mapstructure:"COLLECTED_BY"`
	SeedOnEmpty  bool     `mapstructure:"SEED_ON_EMPTY"`
	BodyLimit    string   `mapstructure:"BODY_LIMIT"`
	PageSize     int      `mapstructure:"PAGE_SIZE"`
}

// DefaultStoreKey is the key the report collection is persisted under.
const DefaultStoreKey = "pathoreport_reports"

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DATA_DIR", "./data")
	v.SetDefault("STORE_KEY", DefaultStoreKey)
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("COLLECTED_BY", "Lab Technician")
	v.SetDefault("SEED_ON_EMPTY", true)
	v.SetDefault("BODY_LIMIT", "10M")
	v.SetDefault("PAGE_SIZE", 5)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATA_DIR")
	v.BindEnv("DATABASE_PATH")
	v.BindEnv("STORE_KEY")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("COLLECTED_BY")
	v.BindEnv("SEED_ON_EMPTY")
	v.BindEnv("BODY_LIMIT")
	v.BindEnv("PAGE_SIZE")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = filepath.Join(cfg.DataDir, "pathoreport.db")
	}

	if cfg.IsDev() {
		log.Println("WARNING: running in DEVELOPMENT mode (ENV=development), console logging enabled.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration can back a report store.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.StoreKey) == "" {
		return fmt.Errorf("STORE_KEY must not be empty")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("PAGE_SIZE must be positive, got %d", c.PageSize)
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", c.Port)
	}
	return nil
}
