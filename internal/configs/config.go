package configs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	kerrors "github.com/privatwolke/opencce/internal/errors"
	"github.com/privatwolke/opencce/internal/utils"
)

const (
	DefaultCipher    = "aes_256_cbc"
	DefaultOutput    = "Container.cce"
	DefaultDirectory = "."
)

type UserConfig struct {
	Defaults     Defaults          `toml:"defaults"`
	Certificates map[string]string `toml:"certificates"`
	Keys         map[string]string `toml:"keys"`
}

type Defaults struct {
	Cipher    string `toml:"cipher"`
	Output    string `toml:"output"`
	Key       string `toml:"key,omitempty"`
	Directory string `toml:"directory"`
}

// NewUserConfig returns a config holding only built-in defaults.
func NewUserConfig() *UserConfig {
	return &UserConfig{
		Defaults: Defaults{
			Cipher:    DefaultCipher,
			Output:    DefaultOutput,
			Directory: DefaultDirectory,
		},
		Certificates: make(map[string]string),
		Keys:         make(map[string]string),
	}
}

// LoadUserConfig loads the user configuration from the config file.
// A missing file is not an error; built-in defaults are returned instead.
func LoadUserConfig() (*UserConfig, error) {
	return LoadUserConfigFrom(UserOpenCCESettings.ConfigFilePath)
}

// LoadUserConfigFrom loads the configuration at configPath, filling unset
// values with built-in defaults.
func LoadUserConfigFrom(configPath string) (*UserConfig, error) {
	config := NewUserConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config, nil
	}

	if err := LoadTOML(configPath, config); err != nil {
		return nil, fmt.Errorf("%w: failed to load user config %s: %v", kerrors.ErrConfiguration, configPath, err)
	}

	defaults := NewUserConfig().Defaults
	if config.Defaults.Cipher == "" {
		config.Defaults.Cipher = defaults.Cipher
	}
	if config.Defaults.Output == "" {
		config.Defaults.Output = defaults.Output
	}
	if config.Defaults.Directory == "" {
		config.Defaults.Directory = defaults.Directory
	}
	if config.Certificates == nil {
		config.Certificates = make(map[string]string)
	}
	if config.Keys == nil {
		config.Keys = make(map[string]string)
	}

	return config, nil
}

// SaveUserConfig saves the user configuration to the config file.
func SaveUserConfig(config *UserConfig) error {
	if err := SaveTOML(UserOpenCCESettings.ConfigFilePath, config); err != nil {
		return fmt.Errorf("failed to save user config: %w", err)
	}
	return nil
}

// ResolveCertificate maps a certificate identifier to a file path.
// Existing files win over aliases.
func (c *UserConfig) ResolveCertificate(identifier string) (string, error) {
	return resolve(identifier, c.Certificates, c.configDir())
}

// ResolveKey maps a key identifier to a file path. An empty identifier
// selects the configured default key.
func (c *UserConfig) ResolveKey(identifier string) (string, error) {
	if identifier == "" {
		identifier = c.Defaults.Key
	}
	if identifier == "" {
		return "", fmt.Errorf("%w: no key given and no default key configured", kerrors.ErrConfiguration)
	}
	return resolve(identifier, c.Keys, c.configDir())
}

// CertificateAliases returns the configured certificate aliases in sorted order.
func (c *UserConfig) CertificateAliases() []string {
	return sortedKeys(c.Certificates)
}

// KeyAliases returns the configured key aliases in sorted order.
func (c *UserConfig) KeyAliases() []string {
	return sortedKeys(c.Keys)
}

func (c *UserConfig) configDir() string {
	if UserOpenCCESettings == nil {
		return ""
	}
	return UserOpenCCESettings.UserConfigsPath
}

func resolve(identifier string, aliases map[string]string, baseDir string) (string, error) {
	expanded := utils.ExpandHome(identifier)
	if utils.FileExists(expanded) {
		return expanded, nil
	}

	target, ok := aliases[identifier]
	if !ok {
		return "", fmt.Errorf("%w: %s", kerrors.ErrUnknownAlias, identifier)
	}

	// Relative alias targets are relative to the config file.
	target = utils.ExpandHome(target)
	if !filepath.IsAbs(target) && baseDir != "" {
		target = filepath.Join(baseDir, target)
	}
	return target, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
