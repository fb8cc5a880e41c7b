package cmd

import (
	logger "github.com/privatwolke/opencce/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	verbose bool
	debug   bool
	quiet   bool
	Logger  logger.Logger
)

// Setup registers the global flags and every subcommand on root.
func Setup(root *cobra.Command) {
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress output")

	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		Logger = logger.Logger{
			Verbose: verbose,
			Debug:   debug,
			Quiet:   quiet,
		}
		Logger.Debugf("Initializing %s command with verbose=%t, debug=%t, quiet=%t", cmd.Name(), verbose, debug, quiet)
	}

	root.AddCommand(encryptCmd)
	root.AddCommand(decryptCmd)
	root.AddCommand(listCmd)
	root.AddCommand(ConfigCmd)
}

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	quiet = false
	resetEncryptState()
	resetDecryptState()
	resetListState()
	resetConfigShowState()
	resetConfigAliasState()

	for _, c := range []*cobra.Command{encryptCmd, decryptCmd, listCmd, ConfigCmd, configShowCmd, configAliasCmd} {
		c.Flags().VisitAll(func(flag *pflag.Flag) {
			flag.Changed = false
		})
	}
}
