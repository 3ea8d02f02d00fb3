// Package main is the entry point for the issuesync CLI application.
package main

import (
	"os"

	"github.com/danielolaszy/issuesync/cmd"
	"github.com/danielolaszy/issuesync/internal/logging"
)

func main() {
	if err := cmd.Execute(); err != nil {
		logging.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}
