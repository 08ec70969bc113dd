package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// DB wraps a database/sql connection together with the dialect it speaks.
type DB struct {
	conn    *sql.DB
	dialect *dialect
}

// OpenSQLite opens (or creates) the SQLite file at path.
func OpenSQLite(ctx context.Context, path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := openSQL(ctx, sqliteDialect, path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// one writer at a time, or SQLITE_BUSY
	db.conn.SetMaxOpenConns(1)
	return db, nil
}

// OpenSQL opens a server database. backend is one of postgres, pgx or mysql.
func OpenSQL(ctx context.Context, backend, dsn string) (*DB, error) {
	d, ok := dialects[backend]
	if !ok || d == sqliteDialect {
		return nil, fmt.Errorf("open %q: %w", backend, ErrUnknownBackend)
	}
	return openSQL(ctx, d, dsn)
}

func openSQL(ctx context.Context, d *dialect, dsn string) (*DB, error) {
	conn, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.name, err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", d.name, err)
	}

	db := &DB{conn: conn, dialect: d}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Printf("[storage] %s ready", d.name)
	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Dialect names the SQL flavour in use.
func (db *DB) Dialect() string {
	return db.dialect.name
}

func (db *DB) migrate(ctx context.Context) error {
	for _, m := range db.dialect.migrations {
		if _, err := db.conn.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %s: %w", firstLine(m), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// q rewrites a ?-placeholder query for the active dialect.
func (db *DB) q(query string) string {
	return db.dialect.rebind(query)
}
