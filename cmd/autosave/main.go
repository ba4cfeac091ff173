// Command autosave generates EPICS autosave/restore artifacts from an IOC
// definition.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/autosave/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// Commands report their own ExitErrors through the output formatter.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
