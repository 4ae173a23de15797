// main is the entry point for the tally CLI.
package main

import (
	"fmt"
	"os"

	"github.com/tallyboard/tally/cmd"

	// Built-in plugins register themselves on import.
	_ "github.com/tallyboard/tally/internal/plugin/dummy"
)

func main() {
	if err := cmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
