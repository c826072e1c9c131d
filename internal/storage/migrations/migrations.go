// Package migrations holds the Postgres schema and applies it with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var files embed.FS

// Commands lists the goose commands accepted by Run.
var Commands = []string{"up", "down", "status", "version", "redo", "up-to", "down-to"}

// Run executes a goose command (up, down, status, ...) against dsn.
func Run(ctx context.Context, dsn string, command string, args ...string) error {
	if dsn == "" {
		return fmt.Errorf("pg dsn is required")
	}
	if !validCommand(command) {
		return fmt.Errorf("unknown migrate command: %s", command)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	goose.SetBaseFS(files)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.RunContext(ctx, command, db, ".", args...); err != nil {
		return fmt.Errorf("migrate %s: %w", command, err)
	}
	return nil
}

func validCommand(command string) bool {
	for _, c := range Commands {
		if c == command {
			return true
		}
	}
	return false
}
