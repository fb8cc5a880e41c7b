package configs

import (
	"os"
	"path/filepath"
)

// ConfigPathEnv overrides the location of the user config file.
const ConfigPathEnv = "OPENCCE_CONFIG"

type UserSettings struct {
	UserConfigsPath string
	ConfigFilePath  string
}

var UserOpenCCESettings *UserSettings

func init() {
	UserOpenCCESettings = DefaultUserSettings()
}

// DefaultUserSettings derives the config locations from the environment.
// Falls back to ~/.config when the platform config directory is unknown.
func DefaultUserSettings() *UserSettings {
	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}

	settings := &UserSettings{
		UserConfigsPath: filepath.Join(configDir, "opencce"),
	}
	settings.ConfigFilePath = filepath.Join(settings.UserConfigsPath, "config.toml")

	if override := os.Getenv(ConfigPathEnv); override != "" {
		settings.ConfigFilePath = override
		settings.UserConfigsPath = filepath.Dir(override)
	}

	return settings
}
