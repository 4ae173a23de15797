// Package config loads and validates a data repo's config.yaml.
package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"

	"github.com/spf13/viper"

	"github.com/tallyboard/tally/schema"
)

// FileName is the expected config file inside a data directory.
const FileName = "config.yaml"

// envPattern matches ${{ env.VAR }} references in the raw file.
var envPattern = regexp.MustCompile(`\$\{\{\s*env\.([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Load reads <dataDir>/config.yaml, substitutes environment variable
// references and validates the result. Unset variables substitute to
// the empty string; validation then catches required fields that ended
// up empty.
func Load(dataDir string) (*schema.Config, error) {
	path := filepath.Join(dataDir, FileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes and validates config content that has already been
// read. Exposed separately so tests and embedders can bypass the
// filesystem.
func Parse(raw []byte) (*schema.Config, error) {
	raw = substituteEnv(raw)

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	var cfg schema.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func substituteEnv(raw []byte) []byte {
	return envPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		name := envPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}

func validate(cfg *schema.Config) error {
	if cfg.Org.Name == "" {
		return fmt.Errorf("config: org.name is required")
	}
	if cfg.Org.Description == "" {
		return fmt.Errorf("config: org.description is required")
	}
	for field, value := range map[string]string{
		"org.url":      cfg.Org.URL,
		"org.logo_url": cfg.Org.LogoURL,
	} {
		if value == "" {
			return fmt.Errorf("config: %s is required", field)
		}
		u, err := url.Parse(value)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config: %s is not a valid URL: %q", field, value)
		}
	}
	for id, spec := range cfg.Leaderboard.Plugins {
		if spec.Source == "" {
			return fmt.Errorf("config: leaderboard.plugins.%s.source is required", id)
		}
	}
	return nil
}
