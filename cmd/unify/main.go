// Package main is the entry point for the unify CLI tool.
package main

import (
	"os"

	"github.com/fwdslsh/unify/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
