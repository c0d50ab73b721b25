// Package main applies the schema in db/migrations with the goose CLI.
// Usage: migrate up | down | status | reset
package main

import (
	"fmt"
	"os"
	"os/exec"

	"backoffice/internal/config"
)

const migrationsDir = "db/migrations"

var commands = map[string]string{
	"up":     "Apply all pending migrations",
	"down":   "Roll back the latest migration",
	"status": "Print the status of every migration",
	"reset":  "Roll back all migrations",
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	if command == "help" || command == "--help" || command == "-h" {
		printUsage()
		return
	}
	if _, ok := commands[command]; !ok {
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	cmd := exec.Command("goose", "-dir", migrationsDir, "postgres", cfg.DatabaseURL, command)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		fmt.Printf("✗ migrate %s failed: %v\n", command, err)
		os.Exit(1)
	}
	fmt.Printf("✓ migrate %s done\n", command)
}

func printUsage() {
	fmt.Println(`Back office schema migrations

Usage:
  migrate <command>

Commands:
  up        Apply all pending migrations
  down      Roll back the latest migration
  status    Print the status of every migration
  reset     Roll back all migrations

Environment Variables:
  BACKOFFICE_DATABASE_URL   Connection string of the database

Requires the goose binary on PATH.`)
}
