package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig  = "CALDSCHED_CONFIG"
	EnvDataDir = "CALDSCHED_DATA_DIR"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // CALDSCHED_CONFIG: override config file path
	DataDir    string // CALDSCHED_DATA_DIR: override data directory
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. It does not modify the Config; callers apply the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		DataDir:    os.Getenv(EnvDataDir),
	}
}
