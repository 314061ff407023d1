// Package ui renders CLI output for retrieval results and index
// listings. Styled output degrades to plain text when stdout is a pipe
// or NO_COLOR is set.
package ui

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// IsTTY checks if the writer is an interactive terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if the NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// StylesFor picks styles for a writer: colored only for a TTY without
// NO_COLOR.
func StylesFor(w io.Writer) Styles {
	return GetStyles(!IsTTY(w) || DetectNoColor())
}
