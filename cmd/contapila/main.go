// Package main is the entry point for the contapila CLI.
package main

import (
	"os"

	"github.com/lucasew/contapila/cmd/contapila/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
