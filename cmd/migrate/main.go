// Command migrate applies pending goose migrations to the configured
// Postgres database. Grounded on aya.is-services's cmd/migrate/main.go:
// resolve a dialect, set it on goose, then delegate to goose.RunContext.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/halvard-k/roomrelay/internal/config"
)

var (
	ErrCommandRequired  = errors.New("command is required")
	ErrFailedToRunGoose = errors.New("failed to run goose")
)

func run(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return ErrCommandRequired
	}

	command := args[0]
	rest := args[1:]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToRunGoose, err)
	}

	if err := goose.RunContext(ctx, command, db, "internal/store/migrations", rest...); err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToRunGoose, err)
	}

	return nil
}

func main() {
	ctx := context.Background()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
