package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

var errColor = color.New(color.FgRed)

func errRequiredFlag(name string) error {
	return fmt.Errorf("%s is required", name)
}

// printError writes a single-line colored error to stderr; cmdErr pairs it
// with a slog record (also stderr) and writes no JSON error envelope to
// stdout. Color is disabled automatically by fatih/color
// when stderr isn't a terminal or NO_COLOR is set.
func printError(err error) {
	fmt.Fprintln(os.Stderr, errColor.Sprintf("error: %s", err.Error()))
}
