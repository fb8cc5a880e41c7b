package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/privatwolke/opencce/internal/ui"
	"github.com/privatwolke/opencce/internal/utils"
	"github.com/privatwolke/opencce/internal/workflows"
)

var (
	listKey      string
	listPassword string
)

func init() {
	listCmd.Flags().StringVarP(&listKey, "key", "k", "", "private key file or alias, - for stdin (default from config)")
	listCmd.Flags().StringVarP(&listPassword, "password", "P", "", "passphrase of the private key (prompted when needed)")
}

func resetListState() {
	listKey = ""
	listPassword = ""
}

var listCmd = &cobra.Command{
	Use:   "list [flags] CONTAINER",
	Short: "Lists the files and recipients of a CCE container",
	Long: `Decrypts a CCE container in memory and lists its files and recipient
certificates without writing anything to disk.

Examples:
  opencce list -k me.pem Container.cce`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting list command")
		spinner, cleanup := startSpinner("Reading container...", verbose)
		defer cleanup()

		result, err := listContainer(cmd, spinner, args[0])
		if err != nil {
			Logger.Errorf("List failed: %v", err)
			spinner.FinalMSG = failure("Failed to read "+ui.Path.Sprint(args[0]), err) + hintFor(err)
			return err
		}
		warnLooseKey(spinner, result.Key)
		Logger.Infof("Container has %d members and %d recipients", len(result.Members), len(result.Recipients))

		var b strings.Builder
		b.WriteString(color.CyanString("Files") + fmt.Sprintf(" (%d):\n", len(result.Members)))
		for _, m := range result.Members {
			fmt.Fprintf(&b, "  %s %s\n", ui.Path.Sprint(m.Path), ui.Muted.Sprint(utils.FormatSize(m.Size)))
		}
		b.WriteString("\n" + color.CyanString("Recipients") + fmt.Sprintf(" (%d):\n", len(result.Recipients)))
		for _, r := range result.Recipients {
			fmt.Fprintf(&b, "  %s %s\n", r.FriendlyName(), ui.Fingerprint.Sprint(r.Fingerprint()))
		}

		spinner.FinalMSG = b.String()
		return nil
	},
}

func listContainer(cmd *cobra.Command, s *spinner.Spinner, input string) (*workflows.ListResult, error) {
	keyOpts, err := keyOptions(cmd, listKey, listPassword, pausingPrompt(s, "Enter passphrase for private key: "))
	if err != nil {
		return nil, err
	}
	return workflows.List(context.Background(), workflows.ListOptions{
		KeyOptions: keyOpts,
		Input:      input,
	})
}
