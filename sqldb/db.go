// Package sqldb implements the core store interfaces on database/sql.
// It supports sqlite3 and mysql, selected by a dburl-style URL.
package sqldb

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
	"github.com/xo/dburl"

	"kb/core"
)

// Open parses a database URL (see github.com/xo/dburl), opens and pings
// the database. It returns the driver name so callers can choose a
// matching session store and migration driver.
func Open(rawURL string) (*sql.DB, string, error) {

	u, err := dburl.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("could not parse database url: %w", err)
	}

	db, err := sql.Open(u.Driver, u.DSN)
	if err != nil {
		return nil, "", fmt.Errorf("could not open sql database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("could not ping sql database: %w", err)
	}

	return db, u.Driver, nil
}

func mustPrepare(db *sql.DB, query string) *sql.Stmt {
	stmt, err := db.Prepare(query)
	if err != nil {
		panic(fmt.Sprintf("preparing %q: %v", query, err))
	}
	return stmt
}

// notFound maps sql.ErrNoRows to the core taxonomy.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}

// conflict maps unique-constraint violations to the core taxonomy.
// mysql has no exported error type in our dependency graph, so its
// duplicate-entry error (1062) is matched on the message.
func conflict(err error, msg string) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return core.Conflictf("%s", msg)
	}
	if strings.Contains(err.Error(), "Duplicate entry") {
		return core.Conflictf("%s", msg)
	}
	return err
}

// nullableID converts a *int to its storage form.
func nullableID(id *int) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*id), Valid: true}
}

func scanNullableID(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	id := int(v.Int64)
	return &id
}
