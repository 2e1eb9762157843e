package internal

import (
	"database/sql"
	"fmt"
	"io/fs"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

// OpenMigrationDB opens a database/sql handle used only by goose; the
// repositories themselves run on pgxpool.
func OpenMigrationDB(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open migration connection: %w", err)
	}
	return db, nil
}

// RunMigrations executes all pending migrations found in fsys. Each bounded
// context keeps its own version table so the three schemas can share a
// database without interfering.
func RunMigrations(db *sql.DB, fsys fs.FS, table string) error {
	goose.SetBaseFS(fsys)
	goose.SetTableName(table)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
