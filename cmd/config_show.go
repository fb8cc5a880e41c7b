package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/privatwolke/opencce/internal/configs"
	"github.com/privatwolke/opencce/internal/ui"
	"github.com/privatwolke/opencce/internal/utils"
)

var configShowJSON bool

func init() {
	configShowCmd.Flags().BoolVar(&configShowJSON, "json", false, "output in JSON format")
	ConfigCmd.AddCommand(configShowCmd)
}

// resetConfigShowState resets the config show command's global state for testing.
func resetConfigShowState() {
	configShowJSON = false
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Displays the resolved configuration: the config file location, the
defaults in effect and every certificate and key alias.

Examples:
  # Show user configuration
  opencce config show

  # Output in JSON format
  opencce config show --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting config show command")
		path := configs.UserOpenCCESettings.ConfigFilePath

		Logger.Debugf("Loading user config from %s", path)
		userConfig, err := configs.LoadUserConfig()
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to load user config: %v", err)
		}

		if configShowJSON {
			return outputUserConfigJSON(path, userConfig)
		}
		outputUserConfigText(path, userConfig)
		return nil
	},
}

// outputUserConfigJSON outputs user config in JSON format.
func outputUserConfigJSON(path string, config *configs.UserConfig) error {
	output, err := json.MarshalIndent(struct {
		Path   string              `json:"path"`
		Exists bool                `json:"exists"`
		Config *configs.UserConfig `json:"config"`
	}{path, utils.FileExists(path), config}, "", "  ")
	if err != nil {
		return Logger.ErrorfAndReturn("Failed to marshal config to JSON: %v", err)
	}
	fmt.Println(string(output))
	return nil
}

// outputUserConfigText outputs user config in human-readable format.
func outputUserConfigText(path string, config *configs.UserConfig) {
	status := ""
	if !utils.FileExists(path) {
		status = " " + ui.Muted.Sprint("not found, using defaults")
	}
	fmt.Println(color.CyanString("User Configuration") + " (" + ui.Path.Sprint(path) + "):" + status)
	fmt.Println()
	fmt.Printf("  %-11s %s\n", "Cipher:", color.GreenString(config.Defaults.Cipher))
	fmt.Printf("  %-11s %s\n", "Output:", color.GreenString(config.Defaults.Output))
	fmt.Printf("  %-11s %s\n", "Directory:", color.GreenString(config.Defaults.Directory))
	if config.Defaults.Key != "" {
		fmt.Printf("  %-11s %s\n", "Key:", color.GreenString(config.Defaults.Key))
	}

	printAliases("Certificates:", config.CertificateAliases(), config.Certificates)
	printAliases("Keys:", config.KeyAliases(), config.Keys)
}

func printAliases(title string, aliases []string, targets map[string]string) {
	if len(aliases) == 0 {
		return
	}
	fmt.Println()
	fmt.Println(color.CyanString(title))
	for _, alias := range aliases {
		fmt.Printf("  %s → %s\n", color.YellowString(alias), ui.Path.Sprint(targets[alias]))
	}
}
