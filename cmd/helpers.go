package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"

	"github.com/privatwolke/opencce/internal/secrets"
	"github.com/privatwolke/opencce/internal/ui"
	"github.com/privatwolke/opencce/internal/utils"
	"github.com/privatwolke/opencce/internal/workflows"
)

// startSpinner creates and starts a spinner with the given message unless
// verbose, debug or quiet output was requested.
// Returns the spinner and a function that should be deferred to clean up.
//
// spinner.FinalMSG values do NOT need trailing newlines. The cleanup function
// calls ui.EnsureNewline() on the final message before printing it.
func startSpinner(message string, verbose bool) (*spinner.Spinner, func()) {
	Logger.Debugf("Starting spinner with message: %s", message)
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message

	if err := s.Color("cyan"); err != nil {
		Logger.Warnf("Failed to set spinner color: %v", err)
	}

	animate := !verbose && !debug && !quiet
	if animate {
		s.Start()
		// Ensure log output is discarded unless in verbose mode.
		log.SetOutput(io.Discard)
	} else {
		Logger.Infof("Running: %s", message)
	}

	cleanup := func() {
		if animate {
			log.SetOutput(os.Stdout)
		}

		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Clear FinalMSG so s.Stop() doesn't print it.
			s.FinalMSG = ""
		}

		if animate {
			s.Stop()
		}

		// Print final message to stdout (for tests to capture).
		if finalMsg != "" {
			fmt.Print(finalMsg)
		}
	}

	return s, cleanup
}

// pausingPrompt prompts for a passphrase with the spinner stopped.
func pausingPrompt(s *spinner.Spinner, prompt string) secrets.PassphraseProvider {
	ask := secrets.TerminalPassphrase(prompt)
	return func() ([]byte, error) {
		if !utils.IsTTYAvailable() {
			return nil, fmt.Errorf("%w and no terminal is available (hint: use --password)", secrets.ErrPassphraseRequired)
		}
		running := s.Active()
		if running {
			s.Stop()
		}
		passphrase, err := ask()
		if running {
			s.Start()
		}
		return passphrase, err
	}
}

// formatSteps renders one line per staging step. Successful steps are
// omitted in quiet mode.
func formatSteps(steps []workflows.Step) string {
	var b strings.Builder
	for _, step := range steps {
		if step.OK() {
			if quiet {
				continue
			}
			b.WriteString(ui.Step(step.Action, step.Subject, ui.StatusOK) + "\n")
			continue
		}
		b.WriteString(ui.Step(step.Action, step.Subject, ui.StatusError) + "\n")
		b.WriteString("  " + ui.Muted.Sprint(step.Err.Error()) + "\n")
	}
	return b.String()
}

// failure renders the final message of a failed command.
func failure(message string, err error) string {
	return color.RedString("✗") + " " + message + "\n" +
		color.RedString("Error: ") + err.Error()
}

// warnLooseKey reports a private key readable by other users.
func warnLooseKey(s *spinner.Spinner, info workflows.KeyInfo) {
	if info.LooseMode == 0 {
		return
	}
	s.Stop()
	Logger.WarnfAlways("Private key file has overly permissive permissions (%o), consider running 'chmod 600 %s'",
		info.LooseMode, info.Path)
}
