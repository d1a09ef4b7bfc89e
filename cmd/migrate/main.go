// Command migrate applies or rolls back the embedded database migrations.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"clubfunds/internal/config"
	"clubfunds/internal/database/migrations"

	"github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"
)

func main() {
	var (
		command = flag.String("command", "", "Migration command: up, down, version, force")
		steps   = flag.Int("steps", 0, "Number of steps for down (0 rolls back everything)")
		version = flag.Int("version", 0, "Version for force")
	)
	flag.Parse()

	if *command == "" {
		fmt.Println("Usage: migrate -command [up|down|version|force] [options]")
		fmt.Println("  up            apply all pending migrations")
		fmt.Println("  down          roll back -steps migrations (all when 0)")
		fmt.Println("  version       show the current migration version")
		fmt.Println("  force         set the version without running migrations")
		os.Exit(1)
	}

	_ = godotenv.Load()
	cfg := config.NewConfig()

	m, err := migrations.New(cfg.Database.DSN())
	if err != nil {
		log.Fatalf("failed to create migrator: %v", err)
	}
	defer m.Close()

	switch *command {
	case "up":
		err = m.Up()
	case "down":
		if *steps > 0 {
			err = m.Steps(-*steps)
		} else {
			err = m.Down()
		}
	case "version":
		v, dirty, verr := m.Version()
		if verr != nil {
			log.Fatalf("failed to read version: %v", verr)
		}
		fmt.Printf("version: %d dirty: %t\n", v, dirty)
		return
	case "force":
		err = m.Force(*version)
	default:
		log.Fatalf("unknown command %q", *command)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Println("no change")
		return
	}
	if err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	fmt.Println("done")
}
