// Package logger provides leveled logging for opencce CLI commands.
//
// # Verbosity Levels
//
// Logging behavior is controlled by three flags:
//
//   - --verbose: Shows info and warning messages
//   - --debug: Shows all messages including debug details and errors
//   - --quiet: Suppresses everything except debug output
//
// Without flags, only critical warnings are shown.
//
// # Log Methods
//
//	Logger.Infof()           // Shown with --verbose or --debug
//	Logger.Debugf()          // Shown only with --debug
//	Logger.Warnf()           // Shown with --verbose or --debug
//	Logger.WarnfAlways()     // Shown unless --quiet
//	Logger.Errorf()          // Shown with --debug
//	Logger.ErrorfAndReturn() // Errorf, then returns the error
//
// Commands create a logger in the root command's PersistentPreRun and
// pass it to workflows through their options.
package logger
