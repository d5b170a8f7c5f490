// Package config loads scholarmatch settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/codeGROOVE-dev/scholarmatch/pkg/country"
	"github.com/codeGROOVE-dev/scholarmatch/pkg/resolve"
	"github.com/codeGROOVE-dev/scholarmatch/pkg/score"
	"github.com/codeGROOVE-dev/scholarmatch/pkg/throttle"
)

// OpenAlex configures the directory client.
type OpenAlex struct {
	BaseURL           string `toml:"base_url"`
	Mailto            string `toml:"mailto"`
	UserAgent         string `toml:"user_agent"`
	HTTPCacheDir      string `toml:"http_cache_dir"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	HTTPCacheTTLHours int    `toml:"http_cache_ttl_hours"` // 0 disables the response cache
}

// Resolve configures the cascades.
type Resolve struct {
	InstitutionThreshold float64 `toml:"institution_threshold"`
	PersonThreshold      float64 `toml:"person_threshold"`
	PageSize             int     `toml:"page_size"`
	Concurrency          int     `toml:"concurrency"`
	RecordTimeoutSeconds int     `toml:"record_timeout_seconds"`
}

// Throttle configures request pacing and retries.
type Throttle struct {
	CallsPerSecond  float64 `toml:"calls_per_second"` // 0 disables pacing
	RetryAttempts   int     `toml:"retry_attempts"`
	RetryDelayMS    int     `toml:"retry_delay_ms"`
	RetryMaxDelayMS int     `toml:"retry_max_delay_ms"`
}

// Cache configures the persistent institution cache.
type Cache struct {
	SQLitePath string `toml:"sqlite_path"` // Empty keeps the cache in memory
}

// Config is the full file layout.
type Config struct {
	Countries map[string]string `toml:"countries"` // Extra country name to ISO2 mappings
	OpenAlex  OpenAlex          `toml:"openalex"`
	Resolve   Resolve           `toml:"resolve"`
	Throttle  Throttle          `toml:"throttle"`
	Cache     Cache             `toml:"cache"`
	Weights   score.Weights     `toml:"weights"`
}

const defaultConfigPath = "~/.config/scholarmatch/config.toml"

// DefaultConfigPath returns the absolute path of the default config file.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. A missing file
// yields the defaults. It returns the resolved path and whether it existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close() //nolint:errcheck // read-only

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("scholarmatch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath applies the config file's path rules to a command-line path.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// ResolveConfig returns the engine configuration.
func (c *Config) ResolveConfig() resolve.Config {
	return resolve.Config{
		InstitutionThreshold: c.Resolve.InstitutionThreshold,
		PersonThreshold:      c.Resolve.PersonThreshold,
		PageSize:             c.Resolve.PageSize,
		Concurrency:          c.Resolve.Concurrency,
		RecordTimeout:        time.Duration(c.Resolve.RecordTimeoutSeconds) * time.Second,
	}
}

// RetryPolicy returns the retry budget for directory calls.
func (c *Config) RetryPolicy() throttle.Policy {
	return throttle.Policy{
		Attempts: uint(max(c.Throttle.RetryAttempts, 1)),
		Delay:    time.Duration(c.Throttle.RetryDelayMS) * time.Millisecond,
		MaxDelay: time.Duration(c.Throttle.RetryMaxDelayMS) * time.Millisecond,
		Backoff:  true,
	}
}

// HTTPTimeout returns the per-request timeout.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.OpenAlex.TimeoutSeconds) * time.Second
}

// HTTPCacheTTL returns how long directory responses are reused.
func (c *Config) HTTPCacheTTL() time.Duration {
	return time.Duration(c.OpenAlex.HTTPCacheTTLHours) * time.Hour
}

// CountryMapper returns the built-in country table plus file overrides.
func (c *Config) CountryMapper() *country.Mapper {
	if len(c.Countries) == 0 {
		return country.Default()
	}
	return country.New(c.Countries)
}
