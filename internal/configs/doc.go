// Package configs manages the user configuration for opencce.
//
// Configuration is stored in TOML format at <UserConfigDir>/opencce/config.toml,
// or at the path named by the OPENCCE_CONFIG environment variable:
//
//	[defaults]
//	cipher = "aes_256_cbc"
//	output = "Container.cce"
//	key = "me"
//	directory = "."
//
//	[certificates]
//	alice = "/home/me/certs/alice.cer"
//
//	[keys]
//	me = "~/.opencce/me.pem"
//
// # Aliases
//
// Certificate and key identifiers given on the command line resolve in two
// steps: an existing file path is used as is, otherwise the identifier is
// looked up in the [certificates] or [keys] table. Relative alias targets
// are relative to the config file's directory.
//
// # Settings
//
// UserOpenCCESettings holds the resolved config locations and is initialized
// at startup. Tests replace it to point at a temporary directory.
package configs
