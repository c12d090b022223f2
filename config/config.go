// Package config loads runtime settings for the server and CLI.
//
// Precedence, lowest first: built-in defaults, YAML file, environment
// variables. Command-line flags are applied by the binaries on top.
//
// Every setting has an environment override: PORT, CORS_ORIGINS,
// SHUTDOWN_TIMEOUT, LOG_LEVEL, STORE, STORE_NAME, NAME_A, RATE_A, NAME_B,
// RATE_B and TOLERANCE.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/warp/credit-engine/distribution"
)

// Config holds all runtime configuration.
type Config struct {
	Server struct {
		Port            int      `yaml:"port"`
		CORSOrigins     []string `yaml:"cors_origins"`
		ShutdownTimeout string   `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Store struct {
		// Backend is "memory" or "sqlite". Both keep state in memory only.
		Backend string `yaml:"backend"`
		Name    string `yaml:"name"`
	} `yaml:"store"`
	Rates struct {
		NameA string `yaml:"name_a"`
		RateA string `yaml:"rate_a"`
		NameB string `yaml:"name_b"`
		RateB string `yaml:"rate_b"`
	} `yaml:"rates"`
	Tolerance string `yaml:"tolerance"`
}

// Load reads config from a YAML file (missing file is fine), then applies
// environment variable overrides, defaults and validation.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		c.Server.ShutdownTimeout = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("STORE"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("STORE_NAME"); v != "" {
		c.Store.Name = v
	}
	if v := os.Getenv("NAME_A"); v != "" {
		c.Rates.NameA = v
	}
	if v := os.Getenv("RATE_A"); v != "" {
		c.Rates.RateA = v
	}
	if v := os.Getenv("NAME_B"); v != "" {
		c.Rates.NameB = v
	}
	if v := os.Getenv("RATE_B"); v != "" {
		c.Rates.RateB = v
	}
	if v := os.Getenv("TOLERANCE"); v != "" {
		c.Tolerance = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "30s"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "memory"
	}
	if c.Store.Name == "" {
		c.Store.Name = "credit-engine"
	}
	if c.Rates.NameA == "" {
		c.Rates.NameA = distribution.DefaultRates.NameA
	}
	if c.Rates.RateA == "" {
		c.Rates.RateA = distribution.DefaultRates.RateA.String()
	}
	if c.Rates.NameB == "" {
		c.Rates.NameB = distribution.DefaultRates.NameB
	}
	if c.Rates.RateB == "" {
		c.Rates.RateB = distribution.DefaultRates.RateB.String()
	}
	if c.Tolerance == "" {
		c.Tolerance = distribution.DefaultTolerance.String()
	}
}

// Validate checks that every value is usable.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Server.Port))
	}
	if _, err := time.ParseDuration(c.Server.ShutdownTimeout); err != nil {
		errs = append(errs, fmt.Errorf("invalid shutdown_timeout %q: %w", c.Server.ShutdownTimeout, err))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.Log.Level))
	}
	switch c.Store.Backend {
	case "memory", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("invalid store backend %q, must be memory or sqlite", c.Store.Backend))
	}
	if _, err := c.CalculatorRates(); err != nil {
		errs = append(errs, err)
	}
	if tol, err := decimal.NewFromString(c.Tolerance); err != nil || !tol.IsPositive() {
		errs = append(errs, fmt.Errorf("invalid tolerance %q, must be a positive number", c.Tolerance))
	}
	return errors.Join(errs...)
}

// CalculatorRates converts the configured rates.
func (c *Config) CalculatorRates() (distribution.Rates, error) {
	a, err := decimal.NewFromString(c.Rates.RateA)
	if err != nil || !a.IsPositive() {
		return distribution.Rates{}, fmt.Errorf("invalid rate_a %q, must be a positive number", c.Rates.RateA)
	}
	b, err := decimal.NewFromString(c.Rates.RateB)
	if err != nil || !b.IsPositive() {
		return distribution.Rates{}, fmt.Errorf("invalid rate_b %q, must be a positive number", c.Rates.RateB)
	}
	return distribution.Rates{NameA: c.Rates.NameA, RateA: a, NameB: c.Rates.NameB, RateB: b}, nil
}

// Calculator builds a calculator from the validated config.
func (c *Config) Calculator() (*distribution.Calculator, error) {
	rates, err := c.CalculatorRates()
	if err != nil {
		return nil, err
	}
	tol, err := decimal.NewFromString(c.Tolerance)
	if err != nil {
		return nil, fmt.Errorf("invalid tolerance: %w", err)
	}
	return &distribution.Calculator{Rates: rates, Tolerance: tol}, nil
}

// Shutdown returns the graceful shutdown timeout.
func (c *Config) Shutdown() time.Duration {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// SlogLevel maps the configured level name to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
