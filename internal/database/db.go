package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// Dialect names the SQL flavour behind a DB handle.
type Dialect string

const (
	MySQL  Dialect = "mysql"
	SQLite Dialect = "sqlite"
)

// DB wraps the connection pool together with its dialect so repositories
// can adjust the few statements that differ between MySQL and SQLite.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// ForUpdate returns the row-locking suffix for SELECTs inside a transaction.
// SQLite has no row locks; its single writer connection serializes instead.
func (d *DB) ForUpdate() string {
	if d.Dialect == MySQL {
		return " FOR UPDATE"
	}
	return ""
}

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := ping(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return &DB{DB: db, Dialect: MySQL}, nil
}

// OpenSQLite opens (or creates) a SQLite database file. Foreign keys are
// switched on for every connection and the pool is limited to a single
// connection so concurrent writers queue instead of failing with
// "database is locked".
func OpenSQLite(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := ping(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &DB{DB: db, Dialect: SQLite}, nil
}

func ping(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}
