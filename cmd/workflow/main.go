package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/bucketsio/workflow/cmd/workflow/commands"
	"github.com/bucketsio/workflow/internal/logger"
)

func main() {
	// Load .env if present so env-var configuration works in development
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env file: %v\n", err)
	}

	logger.InitializeAndConfigure()

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
