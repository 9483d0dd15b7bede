// Package migrations drives the Postgres catalog schema through
// golang-migrate instead of relying solely on GORM's AutoMigrate (A3).
// The sqlite driver used in tests still uses AutoMigrate directly from
// catalog.Manager.Initialize, since golang-migrate's postgres driver
// does not apply to it.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed files/*.sql
var files embed.FS

// Run applies every pending up migration against db. It is idempotent:
// calling it again once the schema is current is a no-op.
func Run(db *sql.DB) error {
	source, err := iofs.New(files, "files")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("init postgres migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("init migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
