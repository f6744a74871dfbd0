package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	envprovider "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Load loads configuration with the following priority, highest last:
// defaults, the YAML file at path (skipped when path is empty; a missing
// file is an error), then DBSESSION_-prefixed environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	if err := loadEnv(k); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	return unmarshal(k)
}

// LoadBytes loads configuration from raw YAML content layered over defaults.
// Environment variables are not consulted.
func LoadBytes(b []byte) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := k.Load(rawbytes.Provider(b), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return unmarshal(k)
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"database.pool.maxconns":        25,
		"database.pool.maxidleconns":    2,
		"database.pool.connmaxlifetime": "30m",
		"database.pool.connmaxidletime": "5m",

		"database.session.maxpertask": 8,
		"database.session.isolation":  "read-committed",
		"database.session.readonly":   false,

		"log.level":  "info",
		"log.pretty": false,
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}

func loadEnv(k *koanf.Koanf) error {
	// DBSESSION_DATABASE_HOST=... becomes database.host
	return k.Load(envprovider.Provider(".", envprovider.Opt{
		Prefix: "DBSESSION_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.TrimPrefix(key, "DBSESSION_")
			return strings.ReplaceAll(strings.ToLower(key), "_", "."), value
		},
	}), nil)
}

func unmarshal(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
