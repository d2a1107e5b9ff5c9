package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/samirrijal/racemap/internal/adapters/postgres"
	"github.com/samirrijal/racemap/internal/pkg/config"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down> [dir]")
	}
	dir := "migrations"
	if len(os.Args) > 2 {
		dir = os.Args[2]
	}

	cfg, err := config.Load("racemap-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN(), 2)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	files, err := migrationFiles(dir, os.Args[1])
	if err != nil {
		log.Fatal(err)
	}
	runMigrations(ctx, db, files)
}

// migrationFiles lists the scripts for direction in apply order: "up" runs
// NNN_name.sql ascending, "down" runs NNN_name.down.sql descending.
func migrationFiles(dir, direction string) ([]string, error) {
	all, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, err
	}
	slices.Sort(all)

	var files []string
	for _, f := range all {
		isDown := strings.HasSuffix(f, ".down.sql")
		switch direction {
		case "up":
			if !isDown {
				files = append(files, f)
			}
		case "down":
			if isDown {
				files = append(files, f)
			}
		default:
			return nil, fmt.Errorf("unknown command: %s", direction)
		}
	}
	if direction == "down" {
		slices.Reverse(files)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s migrations in %s", direction, dir)
	}
	return files, nil
}

func runMigrations(ctx context.Context, db *postgres.DB, files []string) {
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			log.Fatalf("read %s: %v", f, err)
		}

		if err := db.ExecScript(ctx, string(data)); err != nil {
			log.Fatalf("exec %s: %v", f, err)
		}

		fmt.Printf("OK  %s\n", f)
	}

	log.Println("all migrations applied")
}
