package cmd

import (
	"github.com/spf13/cobra"
)

// ConfigCmd is the top-level config command.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit opencce configuration",
	Long: `Provides commands for inspecting the user configuration and registering
certificate and key aliases.

The configuration lives in config.toml inside the user config directory
(override with OPENCCE_CONFIG) and holds defaults plus certificate and
key aliases:

  [defaults]
  cipher = "aes_256_cbc"
  output = "Container.cce"
  key = "me"

  [certificates]
  alice = "/home/me/certs/alice.cer"

  [keys]
  me = "/home/me/.opencce/me.pem"

Examples:
  # Show the resolved configuration
  opencce config show

  # Register a recipient certificate alias
  opencce config alias alice ./alice.cer`,
}
