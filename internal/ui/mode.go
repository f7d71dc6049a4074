// Package ui renders end-of-run summaries for the terminal.
package ui

import (
	"os"

	"golang.org/x/term"
)

// Styled reports whether output to f should carry colors and borders.
//
// Returns false if:
//   - f is not a terminal (piped output, CI logs)
//   - NO_COLOR is set
//   - ELT_PLAIN=1 is set
func Styled(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("ELT_PLAIN") == "1" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
