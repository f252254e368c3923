// Package sqlite implements the SQLite backend over database/sql and
// modernc.org/sqlite.
//
// Connections opened here enable case_sensitive_like so that $like matches
// case-sensitively as on the other backends; $ilike lowers both sides.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"modernc.org/sqlite"

	"github.com/redbco/wings/internal/database/sqlstore"
	"github.com/redbco/wings/pkg/adapter"
	"github.com/redbco/wings/pkg/dbcapabilities"
	"github.com/redbco/wings/pkg/record"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// Backend is a SQLite table.
type Backend struct {
	*sqlstore.Store
	db    *sql.DB
	owned bool
}

// New serves cfg.Table on db. The caller keeps ownership of db.
func New(db *sql.DB, cfg sqlstore.Config) (*Backend, error) {
	if cfg.Decoder == nil {
		cfg.Decoder = Decode
	}
	store, err := sqlstore.New(dbcapabilities.SQLite, sqlstore.SQL(db), cfg)
	if err != nil {
		return nil, err
	}
	return &Backend{Store: store, db: db}, nil
}

// Open opens the database file at path, or a private in-memory database for
// ":memory:", and serves cfg.Table from it. Close releases the database.
func Open(ctx context.Context, path string, cfg sqlstore.Config) (*Backend, error) {
	db, err := OpenDB(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	b, err := New(db, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}
	b.owned = true
	return b, nil
}

// OpenDB opens a database handle with the pragmas the backend relies on.
// Extra pragmas are appended as given, e.g. "journal_mode(WAL)".
func OpenDB(ctx context.Context, path string, pragmas []string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path cannot be empty")
	}
	params := url.Values{}
	for _, p := range append([]string{"case_sensitive_like(1)", "foreign_keys(1)", "busy_timeout(5000)"}, pragmas...) {
		params.Add("_pragma", p)
	}

	db, err := sql.Open(DriverName, path+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if isMemory(path) {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	return db, nil
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file::memory:")
}

// DB returns the underlying handle.
func (b *Backend) DB() *sql.DB {
	return b.db
}

// Close closes the database if the backend opened it.
func (b *Backend) Close() error {
	if !b.owned {
		return nil
	}
	return b.db.Close()
}

// Decode converts modernc values. SQLite has no boolean storage class, so
// integers in columns declared BOOLEAN are decoded as Bool.
func Decode(col sqlstore.Column, v any) (record.Value, error) {
	if n, ok := v.(int64); ok && isBoolType(col.DatabaseType) {
		return record.Bool(n != 0), nil
	}
	return record.FromAny(v)
}

func isBoolType(t string) bool {
	t = strings.ToUpper(t)
	return t == "BOOLEAN" || t == "BOOL"
}

// inspect extracts the primary result code from a driver error.
func inspect(err error) (adapter.Detail, bool) {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return adapter.Detail{}, false
	}
	code := se.Code()
	return adapter.Detail{Number: code & 0xff, Name: sqlite.ErrorCodeString[code]}, true
}
