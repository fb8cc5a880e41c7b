// Package cmd contains testing utilities shared between command tests.
// This file provides common functions for setting up test environments
// and capturing output.
package cmd

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/privatwolke/opencce/internal/configs"
	logger "github.com/privatwolke/opencce/internal/logging"
)

// setupTestEnvironment changes into tempDir and points the user config at
// tempDir/config/config.toml for the duration of the test.
func setupTestEnvironment(t *testing.T, tempDir string) {
	originalWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	originalUserSettings := configs.UserOpenCCESettings
	originalNoColor := color.NoColor

	if err := os.Chdir(tempDir); err != nil {
		t.Fatalf("Failed to change to temp directory: %v", err)
	}

	t.Cleanup(func() {
		if err := os.Chdir(originalWd); err != nil {
			t.Fatalf("Failed to change to original directory: %v", err)
		}
		configs.UserOpenCCESettings = originalUserSettings
		color.NoColor = originalNoColor
		ResetGlobalState()
	})

	// Output assertions match plain text.
	color.NoColor = true

	configDir := filepath.Join(tempDir, "config")
	configs.UserOpenCCESettings = &configs.UserSettings{
		UserConfigsPath: configDir,
		ConfigFilePath:  filepath.Join(configDir, "config.toml"),
	}
}

// captureOutput captures both stdout and stderr during function execution.
func captureOutput(fn func() error) (string, error) {
	originalStdout := os.Stdout
	originalStderr := os.Stderr

	stdoutReader, stdoutWriter, _ := os.Pipe()
	stderrReader, stderrWriter, _ := os.Pipe()

	os.Stdout = stdoutWriter
	os.Stderr = stderrWriter

	outputChan := make(chan string, 2)

	go func() {
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, stdoutReader); err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		outputChan <- buf.String()
	}()

	go func() {
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, stderrReader); err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		outputChan <- buf.String()
	}()

	err := fn()

	stdoutWriter.Close()
	stderrWriter.Close()

	os.Stdout = originalStdout
	os.Stderr = originalStderr

	first := <-outputChan
	second := <-outputChan

	return first + second, err
}

// createTestCLI creates a complete CLI instance running args.
func createTestCLI(args ...string) *cobra.Command {
	ResetGlobalState()
	Logger = logger.Logger{}

	rootCmd := &cobra.Command{
		Use:           "opencce",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	Setup(rootCmd)
	rootCmd.SetArgs(args)
	return rootCmd
}
