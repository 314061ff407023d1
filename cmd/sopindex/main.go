// Package main provides the entry point for the sopindex CLI.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/fasa-labs/sopindex/cmd/sopindex/cmd"
)

func main() {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
