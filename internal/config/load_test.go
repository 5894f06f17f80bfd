package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_FullConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
[calendar]
files = ["/home/u/cal/work.ics", "/home/u/cal/shared"]

[schedule]
enabled = true
idle_delay = "2m"
agenda_cooldown = "12h"
agenda_gating = false

[sync]
command = "vdirsyncer"
args = ["sync"]
auto_args = ["--force-delete"]

[logging]
log_level = "debug"
log_format = "json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"/home/u/cal/work.ics", "/home/u/cal/shared"}, cfg.Calendar.Files)
	assert.Equal(t, "2m", cfg.Schedule.IdleDelay)
	assert.False(t, cfg.Schedule.AgendaGating)
	assert.Equal(t, "vdirsyncer", cfg.Sync.Command)
	assert.Equal(t, []string{"--force-delete"}, cfg.Sync.AutoArgs)
	assert.Equal(t, "debug", cfg.Logging.LogLevel)
}

func TestLoad_DefaultsPreservedForUnsetFields(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
[calendar]
files = ["/home/u/cal/work.ics"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Schedule.Enabled)
	assert.Equal(t, defaultIdleDelay, cfg.Schedule.IdleDelay)
	assert.Equal(t, defaultAgendaCooldown, cfg.Schedule.AgendaCooldown)
	assert.True(t, cfg.Schedule.AgendaGating)
	assert.Equal(t, defaultLogLevel, cfg.Logging.LogLevel)
}

func TestLoad_UnknownKeyIsFatal(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
[schedule]
idle_dealy = "5m"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "idle_dealy")
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
[schedule]
idle_delay = "five minutes"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "idle_delay")
}

func TestLoad_NegativeDurationRejected(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
[schedule]
agenda_cooldown = "-1h"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agenda_cooldown")
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
[logging]
log_level = "chatty"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	t.Parallel()

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestResolveConfig_ParsesDurations(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Schedule.IdleDelay = "90s"
	cfg.Schedule.AgendaCooldown = "6h"
	cfg.Calendar.Files = []string{"/cal/a.ics"}

	res, err := resolveConfig(cfg, "/data")
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, res.IdleDelay)
	assert.Equal(t, 6*time.Hour, res.AgendaCooldown)
	assert.Equal(t, filepath.Join("/data", "agenda.db"), res.AgendaCachePath())
	assert.Equal(t, filepath.Join("/data", "caldsched.pid"), res.PIDFilePath())
}

func TestResolveConfig_ExpandsHome(t *testing.T) {
	t.Parallel()

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Calendar.Files = []string{"~/cal/work.ics", "/abs/other.ics"}

	res, err := resolveConfig(cfg, "/data")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "cal", "work.ics"), res.CalendarFiles[0])
	assert.Equal(t, "/abs/other.ics", res.CalendarFiles[1])
}

func TestResolve_EnvAndCLIPrecedence(t *testing.T) {
	envPath := writeConfig(t, `
[schedule]
idle_delay = "1m"
`)
	cliPath := writeConfig(t, `
[schedule]
idle_delay = "3m"
`)

	// Env only.
	res, err := Resolve(EnvOverrides{ConfigPath: envPath, DataDir: "/data"}, CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, time.Minute, res.IdleDelay)
	assert.Equal(t, "/data", res.DataDir)

	// CLI wins over env.
	res, err = Resolve(EnvOverrides{ConfigPath: envPath}, CLIOverrides{ConfigPath: cliPath})
	require.NoError(t, err)
	assert.Equal(t, 3*time.Minute, res.IdleDelay)
}
