// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// serveConfig holds configuration for the serve command.
type serveConfig struct {
	httpAddr      string
	metricsAddr   string
	databaseURL   string
	logFormat     string
	sweepInterval time.Duration
}

// Validate checks that the configuration is valid.
func (cfg *serveConfig) Validate() error {
	if cfg.httpAddr == "" {
		return fmt.Errorf("http-addr is required")
	}
	if cfg.databaseURL == "" {
		return fmt.Errorf("database-url or the DATABASE_URL environment variable is required")
	}
	if cfg.logFormat != "json" && cfg.logFormat != "text" {
		return fmt.Errorf("log-format must be 'json' or 'text', got %q", cfg.logFormat)
	}
	return nil
}

// Default values for serve command flags.
const (
	defaultHTTPAddr      = "127.0.0.1:8080"
	defaultMetricsAddr   = "127.0.0.1:9100"
	defaultLogFormat     = "json"
	defaultSweepInterval = time.Hour
)

// loadServeConfig merges configuration sources in precedence order:
// flag defaults, then the YAML config file, then explicitly set flags.
// database-url additionally falls back to the DATABASE_URL environment
// variable when neither file nor flag provide it.
func loadServeConfig(path string, flags *pflag.FlagSet) (*serveConfig, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// posflag skips unchanged flags for keys the file already set.
	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	cfg := &serveConfig{
		httpAddr:      k.String("http-addr"),
		metricsAddr:   k.String("metrics-addr"),
		databaseURL:   k.String("database-url"),
		logFormat:     k.String("log-format"),
		sweepInterval: k.Duration("sweep-interval"),
	}
	if cfg.databaseURL == "" {
		cfg.databaseURL = os.Getenv("DATABASE_URL")
	}
	return cfg, nil
}
