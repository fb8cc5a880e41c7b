package main

import (
	"fmt"
	"os"

	"github.com/privatwolke/opencce/cmd"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "opencce",
	Short: "opencce - create and open CCE containers",
	Long: `opencce creates and opens CCE containers: S/MIME encrypted bundles of
files that can be exchanged with the CCE desktop application.

Usage:
  opencce <command> [flags]

Available Commands:
  encrypt    Create a container from files for one or more recipients
  decrypt    Extract the files of a container with your private key
  list       Show the files and recipients of a container
  config     Inspect configuration

Run 'opencce help <command>' for more details on a specific command.
`,
	SilenceErrors: true,
	SilenceUsage:  true,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Welcome to opencce! Run 'opencce --help' to see available commands.")
	},
}

func init() {
	cmd.Setup(rootCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
