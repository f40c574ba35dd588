// Package log is the logging abstraction used across capframe.
//
// Library packages accept a [Logger] and default to [NewNoopLogger]; the CLI
// wires a zerolog-backed logger:
//
//	logger := log.NewZerolog(os.Stderr, log.FormatConsole, "info")
//
// Any logging library can be plugged in by implementing the four methods of
// [Logger].
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package log
