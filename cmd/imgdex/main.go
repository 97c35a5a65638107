package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"

	"github.com/kailas-cloud/imgdex/internal/version"
)

func main() {
	// Load .env file if it exists (for API keys)
	_ = godotenv.Load()

	ctx := context.Background()
	rootCmd := NewRootCmd(version.String(), openApp)
	if err := fang.Execute(ctx, rootCmd); err != nil {
		os.Exit(1)
	}
}
