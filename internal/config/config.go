// Package config loads the desk configuration from an optional YAML file and
// DESK_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"counter-desk/internal/logger"
	"counter-desk/library"
	"counter-desk/market"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

type StoreConfig struct {
	Backend string `yaml:"backend" validate:"oneof=memory sqlite"`
	// DataDir holds library.db and market.db for the sqlite backend.
	DataDir string `yaml:"data_dir" validate:"required_if=Backend sqlite"`
}

// LibraryPath is the SQLite file of the lending desk.
func (s StoreConfig) LibraryPath() string { return filepath.Join(s.DataDir, "library.db") }

// MarketPath is the SQLite file of the checkout desk.
func (s StoreConfig) MarketPath() string { return filepath.Join(s.DataDir, "market.db") }

type Config struct {
	Store   StoreConfig    `yaml:"store"`
	Logger  logger.Config  `yaml:"logger"`
	Library library.Policy `yaml:"library"`
	Market  market.Policy  `yaml:"market"`
	// Seed loads the demo accounts and catalog into empty stores on start.
	Seed bool `yaml:"seed"`
}

func Default() *Config {
	return &Config{
		Store:   StoreConfig{Backend: BackendMemory, DataDir: "data"},
		Logger:  logger.Config{Mode: "development", Level: "warn"},
		Library: library.DefaultPolicy(),
		Market:  market.DefaultPolicy(),
		Seed:    true,
	}
}

// Override adjusts the loaded configuration after the environment, e.g. from
// command-line flags.
type Override func(*Config)

// Load reads path over the defaults, applies environment overrides, then
// overrides, and validates the result. An empty path skips the file.
func Load(path string, overrides ...Override) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	for _, o := range overrides {
		o(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("DESK_STORE"); ok {
		c.Store.Backend = v
	}
	if v, ok := os.LookupEnv("DESK_DATA_DIR"); ok {
		c.Store.DataDir = v
	}
	if v, ok := os.LookupEnv("DESK_LOG_LEVEL"); ok {
		c.Logger.Level = v
	}
	if v, ok := os.LookupEnv("DESK_LOG_FILE"); ok {
		c.Logger.File = v
	}
	if v, ok := os.LookupEnv("DESK_SEED"); ok {
		seed, err := cast.ToBoolE(v)
		if err != nil {
			return fmt.Errorf("DESK_SEED: %w", err)
		}
		c.Seed = seed
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every section and reports the first offending field of each.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		errs := make([]error, len(verrs))
		for i, fe := range verrs {
			errs[i] = fmt.Errorf("config: %s fails %q", fe.Namespace(), fe.Tag())
		}
		return errors.Join(errs...)
	}
	return nil
}
