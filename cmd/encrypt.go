package cmd

import (
	"context"
	"errors"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	kerrors "github.com/privatwolke/opencce/internal/errors"
	"github.com/privatwolke/opencce/internal/ui"
	"github.com/privatwolke/opencce/internal/utils"
	"github.com/privatwolke/opencce/internal/workflows"
)

var (
	encryptCertificates []string
	encryptOutput       string
	encryptCompress     bool
	encryptDirectory    string
	encryptCipher       string
)

func init() {
	encryptCmd.Flags().StringSliceVarP(&encryptCertificates, "certificates", "c", nil, "recipient certificate files or aliases")
	encryptCmd.Flags().StringVarP(&encryptOutput, "output", "O", "", "container file to write (default from config, Container.cce)")
	encryptCmd.Flags().BoolVarP(&encryptCompress, "compress", "C", false, "compress the embedded certificate store with maximum compression")
	encryptCmd.Flags().StringVar(&encryptDirectory, "directory", "", "container directory to file every input under")
	encryptCmd.Flags().StringVar(&encryptCipher, "cipher", "", "content cipher: aes_128_cbc or aes_256_cbc (default from config)")
	_ = encryptCmd.MarkFlagRequired("certificates")
}

func resetEncryptState() {
	encryptCertificates = nil
	encryptOutput = ""
	encryptCompress = false
	encryptDirectory = ""
	encryptCipher = ""
}

var encryptCmd = &cobra.Command{
	Use:   "encrypt [flags] FILE...",
	Short: "Creates a CCE container from files for one or more recipients",
	Long: `Creates a CCE container holding the given files, sealed for every recipient
certificate. Directories are added recursively and keep their hierarchy;
glob patterns (including **) are expanded.

Examples:
  # Encrypt two files for alice and bob
  opencce encrypt -c alice.cer -c bob.cer report.pdf notes.txt

  # Encrypt a directory using a configured certificate alias
  opencce encrypt -c alice -O backup.cce ./documents

  # File every PDF below the current directory under /invoices
  opencce encrypt -c alice --directory invoices '**/*.pdf'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting encrypt command")
		Logger.Debugf("Certificates: %v, files: %v", encryptCertificates, args)
		spinner, cleanup := startSpinner("Creating container...", verbose)
		defer cleanup()

		result, err := workflows.Encrypt(context.Background(), workflows.EncryptOptions{
			Certificates: encryptCertificates,
			Files:        args,
			Directory:    encryptDirectory,
			Output:       encryptOutput,
			Cipher:       encryptCipher,
			Compress:     encryptCompress,
		})

		steps := ""
		if result != nil {
			steps = formatSteps(result.Steps)
			for _, step := range workflows.Failed(result.Steps) {
				Logger.Errorf("%s %s: %v", step.Action, step.Subject, step.Err)
			}
		}

		if err != nil {
			Logger.Errorf("Encrypt failed: %v", err)
			spinner.FinalMSG = steps + failure("Failed to create container", err) + hintFor(err)
			return err
		}

		Logger.Infof("Encrypt command completed: %d members for %d recipients", result.Members, len(result.Recipients))
		if quiet {
			spinner.FinalMSG = steps
			return nil
		}

		recipients := make([]string, 0, len(result.Recipients))
		for _, r := range result.Recipients {
			recipients = append(recipients, r.FriendlyName())
		}

		spinner.FinalMSG = steps +
			color.GreenString("✓") + " Container created successfully!\n" +
			"Wrote " + ui.Path.Sprint(result.Output) + " " + ui.Muted.Sprint(utils.FormatSize(int64(result.Size))) + "\n" +
			color.CyanString("→") + " Readable by: " + ui.Highlight.Sprint(strings.Join(recipients, ", "))
		return nil
	},
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, kerrors.ErrNoRecipients):
		return "\n" + color.CyanString("→") + " Pass at least one readable certificate with " + ui.Flag.Sprint("-c")
	case errors.Is(err, kerrors.ErrNoFilesFound):
		return "\n" + color.CyanString("→") + " Check that the given files exist"
	case errors.Is(err, kerrors.ErrUnknownCipher):
		return "\n" + color.CyanString("→") + " Use " + ui.Code.Sprint("aes_128_cbc") + " or " + ui.Code.Sprint("aes_256_cbc")
	case errors.Is(err, kerrors.ErrDecryptionFailed):
		return "\n" + color.CyanString("→") + " The key is not one of the container's recipients"
	case errors.Is(err, kerrors.ErrOutputExists):
		return "\n" + color.CyanString("→") + " Use " + ui.Flag.Sprint("--force") + " to overwrite"
	}
	return ""
}
