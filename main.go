package main

import (
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/tmforge/tmmigrate/cmd"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using system environment variables")
	}
	cmd.Execute()
}
