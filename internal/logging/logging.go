// Package logging carries the CLI's verbose-mode convention: a single
// package-level flag checked before writing progress messages to
// stderr, the same pattern main.go's VerboseMode guards throughout the
// teacher's build pipeline.
package logging

import (
	"fmt"
	"os"
)

// Verbose is toggled on by the CLI's -v/-verbose flag.
var Verbose bool

// Debugf writes a verbose-mode progress line to stderr; a no-op when
// Verbose is false.
func Debugf(format string, args ...any) {
	if !Verbose {
		return
	}
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

// Errorf always writes to stderr, regardless of Verbose.
func Errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
