// Package migrations applies the embedded schema migrations.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratesqlite3 "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed files/*.sql
var migrationFiles embed.FS

// Up brings the schema to the latest version. A database that is already
// up to date is not an error.
func Up(db *sql.DB, driver string) error {

	m, err := newMigrate(db, driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	// don't close m, that would close the caller's db connection

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

func newMigrate(db *sql.DB, driver string) (*migrate.Migrate, error) {

	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return nil, fmt.Errorf("could not read migration files: %w", err)
	}

	var dbDriver database.Driver
	switch driver {
	case "sqlite3":
		dbDriver, err = migratesqlite3.WithInstance(db, &migratesqlite3.Config{})
	case "mysql":
		dbDriver, err = migratemysql.WithInstance(db, &migratemysql.Config{})
	default:
		err = fmt.Errorf("unknown database backend: %s", driver)
	}
	if err != nil {
		src.Close()
		return nil, err
	}

	return migrate.NewWithInstance("iofs", src, driver, dbDriver)
}
