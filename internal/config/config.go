// Copyright 2026 SiaLedger Authors
//
// Package config loads YAML configuration for the verifier and builder
// CLIs, with ${VAR} / ${VAR:-default} environment-variable substitution.
package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for both cmd/verify and cmd/build-bundle.
type Config struct {
	Bundle  BundleSettings  `yaml:"bundle"`
	Logging LoggingSettings `yaml:"logging"`
	Metrics MetricsSettings `yaml:"metrics"`
}

// BundleSettings names the conventional files inside a bundle directory.
type BundleSettings struct {
	CertsName    string `yaml:"certs_name"`
	ManifestName string `yaml:"manifest_name"`
	RulesetID    string `yaml:"ruleset_id"`
}

// LoggingSettings configures the zerolog logger.
type LoggingSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsSettings configures the in-process Prometheus collector.
type MetricsSettings struct {
	Enabled      bool   `yaml:"enabled"`
	SnapshotPath string `yaml:"snapshot_path"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Bundle: BundleSettings{
			CertsName:    "CERTS.jsonl",
			ManifestName: "MANIFEST.sha256",
			RulesetID:    "SIA_CORE_RULESET_v1",
		},
		Logging: LoggingSettings{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsSettings{
			Enabled: false,
		},
	}
}

// Load reads YAML configuration from path, expanding ${VAR} / ${VAR:-default}
// references against the process environment. An empty path returns
// Default() unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	expanded := expandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// envPattern matches ${VAR_NAME} or ${VAR_NAME:-default}.
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

func expandEnv(content string) string {
	return envPattern.ReplaceAllStringFunc(content, func(match string) string {
		groups := envPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultValue := ""
		if len(groups) >= 4 {
			defaultValue = groups[3]
		}
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}
