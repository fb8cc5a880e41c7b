// Package utils provides shared utility functions for opencce.
//
// # Filesystem Utilities
//
//   - WriteFileAtomic: writes through a temporary file and rename
//   - FileExists, IsRegularFile: cheap stat checks
//   - ExpandHome: resolves ~ in configured paths
//   - IsWithin: guards extraction against escaping the output directory
//
// # String Utilities
//
//   - FormatPaths: formats file paths for human-readable output
//   - FormatSize: formats byte counts
//
// # I/O Utilities
//
//   - ReadStdin: reads all data from standard input
//   - LineWriter: wraps encoded output at a fixed width
//   - Rewind: seeks a stream back to its start
//
// # Terminal Utilities
//
//   - PromptPassphrase: reads a passphrase without echo
//   - IsTerminal, IsTTYAvailable: terminal detection
package utils
