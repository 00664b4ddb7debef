package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"qa-live-service/internal/cli"
)

func main() {
	// .env is optional; real environment variables still win
	if err := godotenv.Load(); err != nil {
		slog.Debug(".env file not found, using process environment")
	}
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
