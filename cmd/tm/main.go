// Package main provides the entry point for the tm CLI.
package main

import (
	"os"

	"github.com/randalmurphal/taskmaster/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
