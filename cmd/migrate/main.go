package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/segyhp/library-lending/internal/config"
	"github.com/segyhp/library-lending/internal/database"
)

const usage = `usage: migrate <command>

commands:
  up            apply all pending migrations
  down [-steps] roll back migrations (default 1)
  version       print the applied schema version`

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Failed to read .env: %v", err)
	}

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	dsn := cfg.Database.DSN()

	switch os.Args[1] {
	case "up":
		if err := database.MigrateUp(dsn); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations applied")

	case "down":
		fset := flag.NewFlagSet("down", flag.ExitOnError)
		steps := fset.Int("steps", 1, "number of migrations to roll back")
		_ = fset.Parse(os.Args[2:])
		if *steps < 1 {
			log.Fatalf("steps must be at least 1")
		}
		if err := database.MigrateDown(dsn, *steps); err != nil {
			log.Fatalf("Rollback failed: %v", err)
		}
		log.Printf("Rolled back %d migration(s)", *steps)

	case "version":
		version, dirty, err := database.Version(dsn)
		if err != nil {
			log.Fatalf("Failed to read version: %v", err)
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)

	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}
