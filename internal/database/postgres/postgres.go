// Package postgres implements the PostgreSQL backend over pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/redbco/wings/internal/database/sqlstore"
	"github.com/redbco/wings/pkg/adapter"
	"github.com/redbco/wings/pkg/dbcapabilities"
	"github.com/redbco/wings/pkg/record"
)

// Querier is the part of pgx shared by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Backend is a PostgreSQL table.
type Backend struct {
	*sqlstore.Store
	pool  *pgxpool.Pool
	owned bool
}

// New serves cfg.Table on pool. The caller keeps ownership of pool.
func New(pool *pgxpool.Pool, cfg sqlstore.Config) (*Backend, error) {
	if cfg.Decoder == nil {
		cfg.Decoder = Decode
	}
	store, err := sqlstore.New(dbcapabilities.PostgreSQL, Executor(pool), cfg)
	if err != nil {
		return nil, err
	}
	return &Backend{Store: store, pool: pool}, nil
}

// ConnString builds a pgx connection string from parsed connection details.
func ConnString(details *dbcapabilities.ConnectionDetails) string {
	q := url.Values{}
	for k, v := range details.Parameters {
		q.Set(k, v)
	}
	q.Set("sslmode", sslMode(details))

	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(details.Host, strconv.Itoa(details.Port)),
		Path:     "/" + details.DatabaseName,
		RawQuery: q.Encode(),
	}
	if details.Username != "" {
		u.User = url.UserPassword(details.Username, details.Password)
	}
	return u.String()
}

func sslMode(details *dbcapabilities.ConnectionDetails) string {
	if details.SSLMode != "" {
		return details.SSLMode
	}
	if details.SSL {
		return "require"
	}
	return "disable"
}

// OpenPool creates and pings a connection pool.
func OpenPool(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}
	return pool, nil
}

// Pool returns the underlying pool.
func (b *Backend) Pool() *pgxpool.Pool {
	return b.pool
}

// Close closes the pool if the backend opened it.
func (b *Backend) Close() error {
	if b.owned {
		b.pool.Close()
	}
	return nil
}

// WithTx returns a context whose backend operations run inside tx. Commit
// and rollback stay with the caller.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return sqlstore.WithExecutor(ctx, Executor(tx))
}

// Executor adapts a pgx connection, pool or transaction.
func Executor(q Querier) sqlstore.Executor {
	return pgxExecutor{q: q}
}

type pgxExecutor struct {
	q Querier
}

func (e pgxExecutor) Query(ctx context.Context, query string, args ...any) (sqlstore.Rows, error) {
	rows, err := e.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	fields := rows.FieldDescriptions()
	cols := make([]sqlstore.Column, len(fields))
	for i, f := range fields {
		cols[i] = sqlstore.Column{Name: f.Name, DatabaseType: typeName(f.DataTypeOID)}
	}
	return &pgxRows{rows: rows, cols: cols}, nil
}

func (e pgxExecutor) Exec(ctx context.Context, query string, args ...any) (sqlstore.Result, error) {
	tag, err := e.q.Exec(ctx, query, args...)
	if err != nil {
		return sqlstore.Result{}, err
	}
	return sqlstore.Result{RowsAffected: tag.RowsAffected()}, nil
}

type pgxRows struct {
	rows pgx.Rows
	cols []sqlstore.Column
}

func (r *pgxRows) Columns() []sqlstore.Column { return r.cols }
func (r *pgxRows) Next() bool                 { return r.rows.Next() }
func (r *pgxRows) Values() ([]any, error)     { return r.rows.Values() }
func (r *pgxRows) Err() error                 { return r.rows.Err() }
func (r *pgxRows) Close()                     { r.rows.Close() }

var types = pgtype.NewMap()

func typeName(oid uint32) string {
	if t, ok := types.TypeForOID(oid); ok {
		return t.Name
	}
	return ""
}

// Decode converts pgx values. Numerics become Float (or Int when integral
// and in range), UUIDs their canonical string, times of day their text and JSON
// documents their encoding.
func Decode(col sqlstore.Column, v any) (record.Value, error) {
	switch x := v.(type) {
	case pgtype.Numeric:
		if !x.Valid {
			return record.Null{}, nil
		}
		if col.DatabaseType == "numeric" && x.Exp >= 0 {
			if n, err := x.Int64Value(); err == nil && n.Valid {
				return record.Int(n.Int64), nil
			}
		}
		f, err := x.Float64Value()
		if err != nil {
			return nil, err
		}
		return record.Float(f.Float64), nil
	case [16]byte:
		return record.String(uuid.UUID(x).String()), nil
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return nil, err
		}
		return record.String(b), nil
	case pgtype.Time:
		if !x.Valid {
			return record.Null{}, nil
		}
		d := time.Duration(x.Microseconds) * time.Microsecond
		return record.String(time.Time{}.Add(d).Format("15:04:05.999999")), nil
	}
	return record.FromAny(v)
}

func inspect(err error) (adapter.Detail, bool) {
	var pe *pgconn.PgError
	if !errors.As(err, &pe) {
		return adapter.Detail{}, false
	}
	return adapter.Detail{SQLState: pe.Code, Name: pe.ConstraintName}, true
}
