package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	kerrors "github.com/privatwolke/opencce/internal/errors"
	"github.com/privatwolke/opencce/internal/ui"
	"github.com/privatwolke/opencce/internal/utils"
	"github.com/privatwolke/opencce/internal/workflows"
)

var (
	decryptKey       string
	decryptPassword  string
	decryptDirectory string
	decryptForce     bool
)

func init() {
	decryptCmd.Flags().StringVarP(&decryptKey, "key", "k", "", "private key file or alias, - for stdin (default from config)")
	decryptCmd.Flags().StringVarP(&decryptPassword, "password", "P", "", "passphrase of the private key (prompted when needed)")
	decryptCmd.Flags().StringVarP(&decryptDirectory, "directory", "d", "", "directory to extract into (default from config, current directory)")
	decryptCmd.Flags().BoolVar(&decryptForce, "force", false, "overwrite existing files")
}

func resetDecryptState() {
	decryptKey = ""
	decryptPassword = ""
	decryptDirectory = ""
	decryptForce = false
}

// keyOptions builds the key selection shared by decrypt and list. A key of
// "-" is read from stdin.
func keyOptions(cmd *cobra.Command, key, password string, prompt func() ([]byte, error)) (workflows.KeyOptions, error) {
	opts := workflows.KeyOptions{Key: key, Prompt: prompt}
	if cmd.Flags().Changed("password") {
		opts.Passphrase = []byte(password)
	}
	if key == "-" {
		Logger.Debugf("Reading private key from stdin")
		data, err := utils.ReadStdin()
		if err != nil {
			return opts, fmt.Errorf("%w: %v", kerrors.ErrKeyLoadFailed, err)
		}
		opts.KeyData = data
	}
	return opts, nil
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt [flags] CONTAINER",
	Short: "Extracts the files of a CCE container",
	Long: `Decrypts a CCE container with your private key and extracts its files,
preserving the container's directory hierarchy. Existing files are kept
unless --force is given.

Examples:
  # Extract into the current directory
  opencce decrypt -k me.pem Container.cce

  # Extract into ./out with a configured key alias
  opencce decrypt -k me -d out Container.cce`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting decrypt command")
		spinner, cleanup := startSpinner("Decrypting container...", verbose)
		defer cleanup()

		result, err := decryptContainer(cmd, spinner, args[0])
		if err != nil {
			Logger.Errorf("Decrypt failed: %v", err)
			spinner.FinalMSG = failure("Failed to decrypt "+ui.Path.Sprint(args[0]), err) + hintFor(err)
			return err
		}
		warnLooseKey(spinner, result.Key)

		steps := formatSteps(result.Steps)
		failed := workflows.Failed(result.Steps)
		for _, step := range failed {
			Logger.Errorf("%s %s: %v", step.Action, step.Subject, step.Err)
		}
		Logger.Infof("Decrypt command completed: %d files written, %d skipped", len(result.Written), len(failed))

		if quiet {
			spinner.FinalMSG = steps
			return nil
		}

		summary := color.GreenString("✓") + " Container decrypted successfully!\n" +
			"The following files were created: " + utils.FormatPaths(result.Written)
		if len(failed) > 0 {
			summary = color.YellowString("⚠") + " Container decrypted with " + ui.Warning.Sprintf("%d", len(failed)) + " skipped files\n" +
				"The following files were created: " + utils.FormatPaths(result.Written)
			for _, step := range failed {
				if errors.Is(step.Err, kerrors.ErrOutputExists) {
					summary += color.CyanString("→") + " Use " + ui.Flag.Sprint("--force") + " to overwrite existing files"
					break
				}
			}
		}
		spinner.FinalMSG = steps + summary
		return nil
	},
}

func decryptContainer(cmd *cobra.Command, s *spinner.Spinner, input string) (*workflows.DecryptResult, error) {
	keyOpts, err := keyOptions(cmd, decryptKey, decryptPassword, pausingPrompt(s, "Enter passphrase for private key: "))
	if err != nil {
		return nil, err
	}
	return workflows.Decrypt(context.Background(), workflows.DecryptOptions{
		KeyOptions: keyOpts,
		Input:      input,
		OutputDir:  decryptDirectory,
		Force:      decryptForce,
	})
}
