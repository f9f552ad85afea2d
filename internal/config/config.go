// Package config loads kvadminer settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every environment variable, e.g. KVADMIN_LISTEN_ADDR.
const Prefix = "KVADMIN"

// Config holds process settings.
type Config struct {
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080"`
	StaticDir  string `envconfig:"STATIC_DIR" default:"static"`

	SessionTimeout time.Duration `envconfig:"SESSION_TIMEOUT" default:"30m"`
	SweepInterval  time.Duration `envconfig:"SWEEP_INTERVAL" default:"60s"`
	ScanCount      int64         `envconfig:"SCAN_COUNT" default:"1000"`
	CookieSecure   bool          `envconfig:"COOKIE_SECURE" default:"false"`

	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// Store dialing.
	DialTimeout       time.Duration `envconfig:"STORE_DIAL_TIMEOUT" default:"5s"`
	StoreReadTimeout  time.Duration `envconfig:"STORE_READ_TIMEOUT" default:"3s"`
	StoreWriteTimeout time.Duration `envconfig:"STORE_WRITE_TIMEOUT" default:"3s"`
	StorePoolSize     int           `envconfig:"STORE_POOL_SIZE" default:"4"`

	// Audit events are published only when NATSURL is set.
	NATSURL string `envconfig:"NATS_URL"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load reads envFile (or ./.env when envFile is empty and the file exists)
// into the process environment, then decodes the KVADMIN_* variables.
// Variables already set in the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("config: process environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen address is empty"))
	}
	positive := []struct {
		name string
		d    time.Duration
	}{
		{"SESSION_TIMEOUT", c.SessionTimeout},
		{"SWEEP_INTERVAL", c.SweepInterval},
		{"READ_TIMEOUT", c.ReadTimeout},
		{"WRITE_TIMEOUT", c.WriteTimeout},
		{"SHUTDOWN_TIMEOUT", c.ShutdownTimeout},
		{"STORE_DIAL_TIMEOUT", c.DialTimeout},
		{"STORE_READ_TIMEOUT", c.StoreReadTimeout},
		{"STORE_WRITE_TIMEOUT", c.StoreWriteTimeout},
	}
	for _, p := range positive {
		if p.d <= 0 {
			errs = append(errs, fmt.Errorf("%s_%s must be positive, got %s", Prefix, p.name, p.d))
		}
	}
	if c.ScanCount <= 0 {
		errs = append(errs, fmt.Errorf("%s_SCAN_COUNT must be positive, got %d", Prefix, c.ScanCount))
	}
	if c.StorePoolSize <= 0 {
		errs = append(errs, fmt.Errorf("%s_STORE_POOL_SIZE must be positive, got %d", Prefix, c.StorePoolSize))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
