package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Resolved is the effective configuration after the override chain and
// duration parsing. This is what the commands consume.
type Resolved struct {
	CalendarFiles []string

	Enabled        bool
	IdleDelay      time.Duration
	AgendaCooldown time.Duration
	AgendaGating   bool

	SyncCommand  string
	SyncArgs     []string
	SyncAutoArgs []string

	LogLevel  string
	LogFormat string

	DataDir string
}

// Load reads and parses a TOML config file and validates it. Unknown keys
// are fatal with the offending key named — silently ignoring a typo in a
// config file leads to hard-to-debug behavior.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}

		return nil, fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validating %s: %w", path, err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns a
// Config with all defaults. Supports the zero-config first run.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> environment -> CLI flags.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	dataDir := DefaultDataDir()
	if env.DataDir != "" {
		dataDir = env.DataDir
	}

	return resolveConfig(cfg, dataDir)
}

// resolveConfig converts a validated Config into a Resolved, parsing
// durations and expanding calendar paths.
func resolveConfig(cfg *Config, dataDir string) (*Resolved, error) {
	idle, err := time.ParseDuration(cfg.Schedule.IdleDelay)
	if err != nil {
		return nil, fmt.Errorf("config: parsing idle_delay: %w", err)
	}

	cooldown, err := time.ParseDuration(cfg.Schedule.AgendaCooldown)
	if err != nil {
		return nil, fmt.Errorf("config: parsing agenda_cooldown: %w", err)
	}

	files := make([]string, 0, len(cfg.Calendar.Files))
	for _, f := range cfg.Calendar.Files {
		files = append(files, expandHome(f))
	}

	return &Resolved{
		CalendarFiles:  files,
		Enabled:        cfg.Schedule.Enabled,
		IdleDelay:      idle,
		AgendaCooldown: cooldown,
		AgendaGating:   cfg.Schedule.AgendaGating,
		SyncCommand:    cfg.Sync.Command,
		SyncArgs:       cfg.Sync.Args,
		SyncAutoArgs:   cfg.Sync.AutoArgs,
		LogLevel:       cfg.Logging.LogLevel,
		LogFormat:      cfg.Logging.LogFormat,
		DataDir:        dataDir,
	}, nil
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[2:])
}

// AgendaCachePath returns the path of the agenda entry cache database.
func (r *Resolved) AgendaCachePath() string {
	return filepath.Join(r.DataDir, "agenda.db")
}

// PIDFilePath returns the path of the watch daemon's PID file.
func (r *Resolved) PIDFilePath() string {
	return filepath.Join(r.DataDir, "caldsched.pid")
}
