package config

import (
	"fmt"
	"time"
)

// Recognized enum values.
var (
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"auto": true, "text": true, "json": true}
)

// Validate checks a parsed Config for invalid values. It reports the
// first problem found with enough context to fix the config file.
func Validate(cfg *Config) error {
	if err := validateDuration("schedule.idle_delay", cfg.Schedule.IdleDelay); err != nil {
		return err
	}

	if err := validateDuration("schedule.agenda_cooldown", cfg.Schedule.AgendaCooldown); err != nil {
		return err
	}

	if !validLogLevels[cfg.Logging.LogLevel] {
		return fmt.Errorf("logging.log_level %q: must be debug, info, warn, or error", cfg.Logging.LogLevel)
	}

	if !validLogFormats[cfg.Logging.LogFormat] {
		return fmt.Errorf("logging.log_format %q: must be auto, text, or json", cfg.Logging.LogFormat)
	}

	if cfg.Sync.Command == "" && len(cfg.Sync.Args) > 0 {
		return fmt.Errorf("sync.args set without sync.command")
	}

	return nil
}

// validateDuration checks that the value parses as a positive duration.
func validateDuration(key, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s %q: %w", key, value, err)
	}

	if d <= 0 {
		return fmt.Errorf("%s %q: must be positive", key, value)
	}

	return nil
}
