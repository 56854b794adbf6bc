package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

var (
	warning = color.New(color.FgYellow)
	failure = color.New(color.FgRed)
	success = color.New(color.FgGreen)
	info    = color.New(color.FgBlue)
)

// Output is where the Print helpers write.
var Output io.Writer = os.Stdout

// PrintWarning displays a warning message with consistent formatting
func PrintWarning(message string) {
	warning.Fprintln(Output, "\nWarning:")
	warning.Fprintln(Output, message)
}

// PrintError displays an error message with consistent formatting
func PrintError(message string) {
	failure.Fprintf(Output, "\nError: %s\n", message)
}

// PrintSuccess displays a success message with consistent formatting
func PrintSuccess(message string) {
	success.Fprintf(Output, "\n%s\n", message)
}

// PrintInfo displays an info message with consistent formatting
func PrintInfo(message string) {
	info.Fprintln(Output, message)
}

func PrintInfof(format string, args ...interface{}) {
	PrintInfo(fmt.Sprintf(format, args...))
}
