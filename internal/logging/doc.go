// Package logging provides concrete implementations of the elt.Logger interface.
//
// Available implementations:
//   - ConsoleLogger: leveled, optionally colored lines on stderr via slog and tint
//   - NullLogger: Discards all messages (useful for testing)
//
// All logger implementations are safe for concurrent use by multiple goroutines.
package logging
