package main

import (
	"os"

	"github.com/swfung/dualcannon/cmd/dualcannon/commands"
)

// main is the entry point for the dualcannon CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
