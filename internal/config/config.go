// Package config reads schemagraph settings from the environment and from
// optional .env files.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds settings that can come from the environment. Command-line
// flags override them.
type Config struct {
	DatabaseURL string     `env:"SCHEMAGRAPH_DATABASE_URL"`
	SchemaFile  string     `env:"SCHEMAGRAPH_SCHEMA_FILE"`
	LogLevel    slog.Level `env:"SCHEMAGRAPH_LOG_LEVEL" envDefault:"info"`
	NoTx        bool       `env:"SCHEMAGRAPH_NO_TX"`
	NoLedger    bool       `env:"SCHEMAGRAPH_NO_LEDGER"`
}

// LoadDotEnv loads .env files from dir with priority: .env.local > .env
// godotenv.Load does NOT overwrite already-set env vars,
// so OS env vars always win, .env.local wins over .env.
// Returns list of files found; a file that fails to parse is an error.
func LoadDotEnv(dir string) ([]string, error) {
	candidates := []string{".env.local", ".env"}
	var loaded []string
	for _, f := range candidates {
		path := filepath.Join(dir, f)
		if _, err := os.Stat(path); err == nil {
			loaded = append(loaded, path)
		}
	}
	if len(loaded) > 0 {
		if err := godotenv.Load(loaded...); err != nil {
			return loaded, fmt.Errorf("config: failed to load %v: %w", loaded, err)
		}
	}
	return loaded, nil
}

// Load reads .env files from the working directory, then the environment.
func Load() (*Config, error) {
	if _, err := LoadDotEnv(""); err != nil {
		return nil, err
	}
	return Parse()
}

// Parse reads the environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
