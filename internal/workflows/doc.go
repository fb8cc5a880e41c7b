// Package workflows provides high-level orchestration for opencce commands.
//
// Workflows coordinate configuration, key loading, file resolution and the
// container itself to implement complete user-facing features. Each
// workflow handles a single command's business logic, independent of CLI
// concerns like flag parsing, spinners and output formatting.
//
// # Design Philosophy
//
// The cmd/ package should be a thin layer that:
//   - Parses command-line flags and arguments
//   - Calls the appropriate workflow function
//   - Formats the result for display
//
// # Available Workflows
//
//   - Encrypt: builds a container from files and seals it for recipients
//   - Decrypt: opens a container and extracts its members
//   - List: opens a container in memory and reports its contents
//
// # Per-item Failures
//
// Certificates, files and members that cannot be staged do not abort a
// workflow. They are returned as failed Steps so the CLI can report each
// one. Only failures of the final encrypt or decrypt step are returned as
// errors, and those never leave a partially written file behind.
//
// # Error Handling
//
// Workflows return typed errors from the internal/errors package. Use
// errors.Is() to check for specific error conditions:
//
//	result, err := workflows.Decrypt(ctx, opts)
//	if errors.Is(err, kerrors.ErrDecryptionFailed) {
//	    // The key is not one of the container's recipients.
//	}
//
// # Context Usage
//
// All workflow functions accept a context.Context as their first parameter.
// Cancellation is checked between items.
package workflows
