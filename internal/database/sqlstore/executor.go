package sqlstore

import (
	"context"
	"database/sql"
)

// Column describes one result column.
type Column struct {
	Name string
	// DatabaseType is the driver's type name, e.g. "BOOLEAN" or "VARCHAR".
	DatabaseType string
}

// Rows is a result set being iterated. Values returns the current row as
// driver-native Go values.
type Rows interface {
	Columns() []Column
	Next() bool
	Values() ([]any, error)
	Err() error
	Close()
}

// Result reports the effect of a statement without a result set.
type Result struct {
	RowsAffected int64
	LastInsertID int64
	// HasLastInsertID is false when the driver could not report an id.
	HasLastInsertID bool
}

// Executor runs statements. The Store needs nothing else from a connection.
type Executor interface {
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	Exec(ctx context.Context, query string, args ...any) (Result, error)
}

type executorKey struct{}

// WithExecutor returns a context whose operations run on exec instead of the
// store's own connection, e.g. inside a caller-managed transaction.
func WithExecutor(ctx context.Context, exec Executor) context.Context {
	return context.WithValue(ctx, executorKey{}, exec)
}

// ExecutorFrom returns the executor carried by ctx, if any.
func ExecutorFrom(ctx context.Context) (Executor, bool) {
	exec, ok := ctx.Value(executorKey{}).(Executor)
	return exec, ok
}

// Conn is the part of database/sql shared by *sql.DB, *sql.Conn and *sql.Tx.
type Conn interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SQL adapts a database/sql connection to an Executor.
func SQL(conn Conn) Executor {
	return sqlExecutor{conn: conn}
}

// Tx adapts a caller-managed transaction to an Executor. Commit and rollback
// stay with the caller.
func Tx(tx *sql.Tx) Executor {
	return sqlExecutor{conn: tx}
}

type sqlExecutor struct {
	conn Conn
}

func (e sqlExecutor) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := e.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		rows.Close()
		return nil, err
	}
	cols := make([]Column, len(types))
	for i, t := range types {
		cols[i] = Column{Name: t.Name(), DatabaseType: t.DatabaseTypeName()}
	}
	return &sqlRows{rows: rows, cols: cols}, nil
}

func (e sqlExecutor) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	res, err := e.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return Result{}, err
	}
	var out Result
	if out.RowsAffected, err = res.RowsAffected(); err != nil {
		return Result{}, err
	}
	if id, err := res.LastInsertId(); err == nil {
		out.LastInsertID, out.HasLastInsertID = id, true
	}
	return out, nil
}

type sqlRows struct {
	rows *sql.Rows
	cols []Column
}

func (r *sqlRows) Columns() []Column { return r.cols }
func (r *sqlRows) Next() bool        { return r.rows.Next() }
func (r *sqlRows) Err() error        { return r.rows.Err() }
func (r *sqlRows) Close()            { r.rows.Close() }

func (r *sqlRows) Values() ([]any, error) {
	values := make([]any, len(r.cols))
	ptrs := make([]any, len(r.cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	return values, nil
}
