package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultUsnPollIntervalSecs  = 30
	defaultOfflineRetentionDays = 7
	defaultReconcileIntervalMin = 30
)

// GeneralConfig holds service-wide defaults.
type GeneralConfig struct {
	UsnPollIntervalSecs  int    `yaml:"usn_poll_interval_secs"`
	OfflineRetentionDays int    `yaml:"offline_retention_days"`
	DataDir              string `yaml:"data_dir"`
}

// VolumeConfig is one entry under volumes.<LETTER>. A drive letter with
// no entry at all is not indexed; Enabled is a pointer so "present but
// not set" (default true) is distinguishable from "explicitly false".
type VolumeConfig struct {
	Enabled               *bool `yaml:"enabled"`
	ReconcileIntervalMins int   `yaml:"reconcile_interval_mins"`
}

// ExcludeConfig lists case-insensitive path prefixes and extensions
// (without a leading dot) to skip during ingest.
type ExcludeConfig struct {
	Paths      []string `yaml:"paths"`
	Extensions []string `yaml:"extensions"`
}

// Config is the fully-parsed, defaulted configuration file.
type Config struct {
	General GeneralConfig           `yaml:"general"`
	Volumes map[string]VolumeConfig `yaml:"volumes"`
	Exclude ExcludeConfig           `yaml:"exclude"`
}

// Load reads and parses the YAML file at path and applies every
// documented default to fields left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.General.UsnPollIntervalSecs <= 0 {
		c.General.UsnPollIntervalSecs = defaultUsnPollIntervalSecs
	}
	if c.General.OfflineRetentionDays <= 0 {
		c.General.OfflineRetentionDays = defaultOfflineRetentionDays
	}
	if c.General.DataDir == "" {
		c.General.DataDir = DefaultDataDir()
	}

	for letter, v := range c.Volumes {
		if v.ReconcileIntervalMins <= 0 {
			v.ReconcileIntervalMins = defaultReconcileIntervalMin
		}
		c.Volumes[letter] = v
	}

	c.Exclude.Extensions = normalizeExtensions(c.Exclude.Extensions)
}

// normalizeExtensions strips a leading dot (the config shouldn't carry
// one, but tolerate it) and lowercases every entry, matching the
// original's load-time validation.
func normalizeExtensions(exts []string) []string {
	out := make([]string, len(exts))
	for i, e := range exts {
		out[i] = strings.ToLower(strings.TrimPrefix(e, "."))
	}
	return out
}

// Enabled reports whether driveLetter should be indexed. A drive with
// no volumes.<LETTER> section at all is not indexed.
func (c *Config) Enabled(driveLetter string) bool {
	v, ok := c.Volumes[driveLetter]
	if !ok {
		return false
	}
	return v.Enabled == nil || *v.Enabled
}

// ReconcileInterval returns driveLetter's configured FAT rescan
// interval, defaulting when the drive has no explicit override.
func (c *Config) ReconcileInterval(driveLetter string) time.Duration {
	v, ok := c.Volumes[driveLetter]
	if !ok || v.ReconcileIntervalMins <= 0 {
		return defaultReconcileIntervalMin * time.Minute
	}
	return time.Duration(v.ReconcileIntervalMins) * time.Minute
}

// UsnPollInterval returns the configured USN poll interval.
func (c *Config) UsnPollInterval() time.Duration {
	return time.Duration(c.General.UsnPollIntervalSecs) * time.Second
}

// ExcludedPath reports whether path matches an excluded prefix
// (case-insensitive) or carries an excluded extension.
func (c *Config) ExcludedPath(path string) bool {
	lower := strings.ToLower(path)
	for _, prefix := range c.Exclude.Paths {
		if strings.HasPrefix(lower, strings.ToLower(prefix)) {
			return true
		}
	}
	for _, ext := range c.Exclude.Extensions {
		if strings.HasSuffix(lower, "."+ext) {
			return true
		}
	}
	return false
}
