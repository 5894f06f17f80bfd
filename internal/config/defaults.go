package config

// Default values for configuration options: layer 0 of the override
// chain, chosen so the daemon behaves sensibly with no config file at all.
const (
	defaultIdleDelay      = "5m"
	defaultAgendaCooldown = "24h"
	defaultLogLevel       = "info"
	defaultLogFormat      = "auto"
)

// DefaultConfig returns a Config populated with all default values. Used
// as the starting point for TOML decoding so unset fields keep defaults.
func DefaultConfig() *Config {
	return &Config{
		Schedule: ScheduleConfig{
			Enabled:        true,
			IdleDelay:      defaultIdleDelay,
			AgendaCooldown: defaultAgendaCooldown,
			AgendaGating:   true,
		},
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
	}
}
