// Package mysql implements the MySQL backend over database/sql and
// github.com/go-sql-driver/mysql.
//
// MySQL has no RETURNING clause, so writes go through the emulated path of
// sqlstore: inserts read back LAST_INSERT_ID() and updates and deletes
// select the affected ids first.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/redbco/wings/internal/database/sqlstore"
	"github.com/redbco/wings/pkg/adapter"
	"github.com/redbco/wings/pkg/dbcapabilities"
	"github.com/redbco/wings/pkg/record"
)

// Backend is a MySQL table.
type Backend struct {
	*sqlstore.Store
	db    *sql.DB
	owned bool
}

// New serves cfg.Table on db. The caller keeps ownership of db, which should
// be opened with parseTime=true.
func New(db *sql.DB, cfg sqlstore.Config) (*Backend, error) {
	if cfg.Decoder == nil {
		cfg.Decoder = Decode
	}
	store, err := sqlstore.New(dbcapabilities.MySQL, sqlstore.SQL(db), cfg)
	if err != nil {
		return nil, err
	}
	return &Backend{Store: store, db: db}, nil
}

// DSN builds a driver DSN from parsed connection details.
func DSN(details *dbcapabilities.ConnectionDetails) string {
	cfg := mysql.NewConfig()
	cfg.User = details.Username
	cfg.Passwd = details.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", details.Host, details.Port)
	cfg.DBName = details.DatabaseName
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	switch {
	case !details.SSL:
		cfg.TLSConfig = "false"
	case details.SSLMode == "prefer":
		cfg.TLSConfig = "skip-verify"
	default:
		cfg.TLSConfig = "true"
	}

	for k, v := range details.Parameters {
		switch k {
		case "tls", "ssl-mode", "sslmode", "parseTime", "loc":
			continue
		}
		if cfg.Params == nil {
			cfg.Params = make(map[string]string)
		}
		cfg.Params[k] = v
	}
	return cfg.FormatDSN()
}

// OpenDB opens and pings a connection pool.
func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	return db, nil
}

// DB returns the underlying handle.
func (b *Backend) DB() *sql.DB {
	return b.db
}

// Close closes the pool if the backend opened it.
func (b *Backend) Close() error {
	if !b.owned {
		return nil
	}
	return b.db.Close()
}

// Decode converts driver values. The text protocol returns every column as
// bytes, so bytes are parsed by the column's declared type.
func Decode(col sqlstore.Column, v any) (record.Value, error) {
	b, ok := v.([]byte)
	if !ok {
		return record.FromAny(v)
	}

	t := strings.ToUpper(col.DatabaseType)
	switch {
	case strings.Contains(t, "INT") || t == "YEAR":
		if strings.HasPrefix(t, "UNSIGNED") {
			n, err := strconv.ParseUint(string(b), 10, 64)
			if err != nil {
				return nil, err
			}
			return record.Int(int64(n)), nil
		}
		n, err := strconv.ParseInt(string(b), 10, 64)
		if err != nil {
			return nil, err
		}
		return record.Int(n), nil
	case t == "DECIMAL" || t == "FLOAT" || t == "DOUBLE":
		f, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return nil, err
		}
		return record.Float(f), nil
	case t == "BLOB" || t == "BINARY" || t == "VARBINARY" || t == "BIT" ||
		t == "TINYBLOB" || t == "MEDIUMBLOB" || t == "LONGBLOB" || t == "GEOMETRY":
		return record.Bytes(append([]byte(nil), b...)), nil
	default:
		return record.String(string(b)), nil
	}
}

func inspect(err error) (adapter.Detail, bool) {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return adapter.Detail{}, false
	}
	d := adapter.Detail{Number: int(me.Number)}
	if me.SQLState != [5]byte{} {
		d.SQLState = string(me.SQLState[:])
	}
	return d, true
}
