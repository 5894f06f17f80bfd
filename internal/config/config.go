// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for caldsched. Overrides layer as
// defaults -> config file -> environment -> CLI flags, so one-off flag
// overrides never require editing the config file.
package config

// Config is the top-level structure parsed from a TOML file.
type Config struct {
	Calendar CalendarConfig `toml:"calendar"`
	Schedule ScheduleConfig `toml:"schedule"`
	Sync     SyncConfig     `toml:"sync"`
	Logging  LoggingConfig  `toml:"logging"`
}

// CalendarConfig lists the calendar files and directories in scope. Paths
// may start with "~/" and are expanded at load time.
type CalendarConfig struct {
	Files []string `toml:"files"`
}

// ScheduleConfig controls the debounce-and-cooldown scheduling core.
// Durations use Go syntax ("5m", "24h").
type ScheduleConfig struct {
	Enabled        bool   `toml:"enabled"`
	IdleDelay      string `toml:"idle_delay"`
	AgendaCooldown string `toml:"agenda_cooldown"`
	AgendaGating   bool   `toml:"agenda_gating"`
}

// SyncConfig names the external synchronization command. AutoArgs are
// appended for unattended runs so the command resolves deletions silently
// and stays quiet (e.g. vdirsyncer's --force-delete).
type SyncConfig struct {
	Command  string   `toml:"command"`
	Args     []string `toml:"args"`
	AutoArgs []string `toml:"auto_args"`
}

// LoggingConfig controls log output: level and format.
// Format "auto" means text on a terminal, JSON otherwise.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings.
type CLIOverrides struct {
	ConfigPath string // --config flag (empty = use default)
}
