package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/privatwolke/opencce/internal/configs"
	kerrors "github.com/privatwolke/opencce/internal/errors"
	"github.com/privatwolke/opencce/internal/ui"
	"github.com/privatwolke/opencce/internal/utils"
)

var (
	configAliasKey     bool
	configAliasDefault bool
)

func init() {
	configAliasCmd.Flags().BoolVar(&configAliasKey, "key", false, "register a private key instead of a certificate")
	configAliasCmd.Flags().BoolVar(&configAliasDefault, "default", false, "make the key the default for decrypt and list (implies --key)")
	ConfigCmd.AddCommand(configAliasCmd)
}

func resetConfigAliasState() {
	configAliasKey = false
	configAliasDefault = false
}

var configAliasCmd = &cobra.Command{
	Use:   "alias [flags] NAME PATH",
	Short: "Register a certificate or key alias",
	Long: `Stores NAME as an alias for the certificate or private key at PATH in
the user configuration. Aliases can be used wherever a certificate or key
path is accepted. An existing alias with the same name is replaced.

Examples:
  # Register a recipient certificate
  opencce config alias alice ./alice.cer

  # Register your own key and use it by default
  opencce config alias --default me ~/.opencce/me.pem`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, target := args[0], args[1]
		Logger.Infof("Starting config alias command for %s", name)

		abs, err := filepath.Abs(utils.ExpandHome(target))
		if err != nil {
			return fmt.Errorf("%w: %v", kerrors.ErrPath, err)
		}
		if !utils.IsRegularFile(abs) {
			return Logger.ErrorfAndReturn("%v", fmt.Errorf("%w: %s", kerrors.ErrFileNotFound, abs))
		}

		userConfig, err := configs.LoadUserConfig()
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to load user config: %v", err)
		}

		kind := "certificate"
		if configAliasKey || configAliasDefault {
			kind = "key"
			userConfig.Keys[name] = abs
			if configAliasDefault {
				userConfig.Defaults.Key = name
			}
		} else {
			userConfig.Certificates[name] = abs
		}

		if err := configs.SaveUserConfig(userConfig); err != nil {
			return Logger.ErrorfAndReturn("Failed to save user config: %v", err)
		}
		Logger.Infof("Saved %s alias %s -> %s", kind, name, abs)

		if !quiet {
			fmt.Printf("%s %s alias %s now points to %s\n",
				color.GreenString("✓"), kind, ui.Highlight.Sprint(name), ui.Path.Sprint(abs))
		}
		return nil
	},
}
