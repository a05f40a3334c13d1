package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "brindex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
volumes:
  C:
    enabled: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, defaultUsnPollIntervalSecs, cfg.General.UsnPollIntervalSecs)
	assert.Equal(t, defaultOfflineRetentionDays, cfg.General.OfflineRetentionDays)
	assert.NotEmpty(t, cfg.General.DataDir)
	assert.Equal(t, 30*time.Minute, cfg.ReconcileInterval("C"))
}

func TestLoadRespectsExplicitValues(t *testing.T) {
	path := writeConfig(t, `
general:
  usn_poll_interval_secs: 5
  offline_retention_days: 14
  data_dir: /tmp/custom
volumes:
  D:
    enabled: false
    reconcile_interval_mins: 10
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.General.UsnPollIntervalSecs)
	assert.Equal(t, 14, cfg.General.OfflineRetentionDays)
	assert.Equal(t, "/tmp/custom", cfg.General.DataDir)
	assert.Equal(t, 5*time.Second, cfg.UsnPollInterval())
	assert.False(t, cfg.Enabled("D"))
	assert.Equal(t, 10*time.Minute, cfg.ReconcileInterval("D"))
}

func TestEnabledDefaultsTrueWhenSectionPresent(t *testing.T) {
	path := writeConfig(t, `
volumes:
  E:
    reconcile_interval_mins: 45
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Enabled("E"))
}

func TestEnabledFalseWhenSectionAbsent(t *testing.T) {
	path := writeConfig(t, `
volumes:
  C:
    enabled: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Enabled("Z"))
}

func TestExtensionsNormalizedToLowercaseWithoutDot(t *testing.T) {
	path := writeConfig(t, `
exclude:
  extensions:
    - ".TMP"
    - "Log"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"tmp", "log"}, cfg.Exclude.Extensions)
}

func TestExcludedPathMatchesCaseInsensitivePrefix(t *testing.T) {
	path := writeConfig(t, `
exclude:
  paths:
    - "C:\\Windows\\Temp"
  extensions:
    - "tmp"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.ExcludedPath(`c:\windows\temp\foo.txt`))
	assert.True(t, cfg.ExcludedPath(`C:\Users\bob\file.TMP`))
	assert.False(t, cfg.ExcludedPath(`C:\Users\bob\file.txt`))
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
