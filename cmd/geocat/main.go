// Package main provides the entry point for the geocat CLI.
package main

import (
	"os"

	"github.com/rangerlabs/geocat/cmd/geocat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
