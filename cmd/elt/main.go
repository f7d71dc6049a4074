package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/ohmyjons/simple-elt/internal/cli"
	"github.com/ohmyjons/simple-elt/pkg/elt"
)

func main() {
	// Recover from panics to ensure graceful exits with stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			os.Exit(elt.ExitPanic)
		}
	}()

	if os.Getenv("ELT_TEST_PANIC") == "1" {
		panic("intentional test panic")
	}

	if err := cli.Execute(); err != nil {
		os.Exit(elt.ExitCodeForError(err))
	}
}
