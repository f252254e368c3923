// Package sqlstore implements adapter.Backend for SQL databases on top of
// querysql. The SQLite, MySQL and PostgreSQL backends share this Store and
// differ only in their Executor and Decoder.
//
// Dialects without RETURNING are served by emulation: an insert is followed
// by a SELECT of the new id, and updates and deletes first SELECT the ids
// they will touch. These sequences are not atomic unless the context carries
// a transaction executor.
package sqlstore

import (
	"context"
	"fmt"

	"github.com/redbco/wings/pkg/dbcapabilities"
	"github.com/redbco/wings/pkg/logger"
	"github.com/redbco/wings/pkg/query"
	"github.com/redbco/wings/pkg/querysql"
	"github.com/redbco/wings/pkg/record"
)

// Decoder converts one driver value into a record value.
type Decoder func(col Column, v any) (record.Value, error)

// DefaultDecoder converts with record.FromAny.
func DefaultDecoder(_ Column, v any) (record.Value, error) {
	return record.FromAny(v)
}

// Config configures a Store.
type Config struct {
	// Table is the table the store reads and writes.
	Table string
	// ID is the primary key column. Defaults to "id".
	ID string
	// Strict rejects unknown query operators.
	Strict  bool
	Decoder Decoder
	Logger  *logger.Logger
}

// Store is a SQL Backend for one table.
type Store struct {
	id       dbcapabilities.DatabaseID
	exec     Executor
	compiler *querysql.Compiler
	table    string
	idField  string
	decode   Decoder
	log      *logger.LogContext
}

// New creates a store running on exec with the dialect registered for id.
func New(id dbcapabilities.DatabaseID, exec Executor, cfg Config) (*Store, error) {
	compiler, err := querysql.New(id, cfg.Strict)
	if err != nil {
		return nil, err
	}
	return NewWithCompiler(id, exec, compiler, cfg)
}

// NewWithCompiler creates a store using a caller-supplied compiler.
func NewWithCompiler(id dbcapabilities.DatabaseID, exec Executor, compiler *querysql.Compiler, cfg Config) (*Store, error) {
	if cfg.Table == "" {
		return nil, fmt.Errorf("table name cannot be empty")
	}
	if cfg.ID == "" {
		cfg.ID = "id"
	}
	if cfg.Decoder == nil {
		cfg.Decoder = DefaultDecoder
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	return &Store{
		id:       id,
		exec:     exec,
		compiler: compiler,
		table:    cfg.Table,
		idField:  cfg.ID,
		decode:   cfg.Decoder,
		log:      cfg.Logger.WithFields(map[string]string{"database": string(id), "table": cfg.Table}),
	}, nil
}

func (s *Store) Descriptor() dbcapabilities.DatabaseID { return s.id }

func (s *Store) IDField() string { return s.idField }

// Table returns the table name.
func (s *Store) Table() string { return s.table }

// Compiler returns the statement compiler.
func (s *Store) Compiler() *querysql.Compiler { return s.compiler }

func (s *Store) executor(ctx context.Context) Executor {
	if exec, ok := ExecutorFrom(ctx); ok {
		return exec
	}
	return s.exec
}

func (s *Store) returning() bool {
	return s.compiler.Dialect.SupportsReturning
}

// Find runs the SELECT for p.
func (s *Store) Find(ctx context.Context, p *query.Params) ([]*record.Record, error) {
	stmt, err := s.compiler.Select(s.table, p, s.idField)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, stmt)
}

// Count runs SELECT COUNT(*) for f.
func (s *Store) Count(ctx context.Context, f *query.Filter) (int64, error) {
	stmt, err := s.compiler.Count(s.table, f)
	if err != nil {
		return 0, err
	}
	rows, err := s.query(ctx, stmt)
	if err != nil {
		return 0, err
	}
	if len(rows) != 1 || rows[0].Len() != 1 {
		return 0, fmt.Errorf("count returned %d rows", len(rows))
	}
	switch n := rows[0].Value(rows[0].Keys()[0]).(type) {
	case record.Int:
		return int64(n), nil
	case record.Float:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("count returned %s", n.Kind())
	}
}

// Insert writes each record with its own INSERT and returns the stored rows.
func (s *Store) Insert(ctx context.Context, records []*record.Record) ([]*record.Record, error) {
	out := make([]*record.Record, 0, len(records))
	for _, in := range records {
		rec := in.Clone()
		if rec.Has(s.idField) && record.IsNull(rec.Value(s.idField)) {
			rec.Delete(s.idField)
		}

		stored, err := s.insertOne(ctx, rec)
		if err != nil {
			return nil, err
		}
		out = append(out, stored)
	}
	return out, nil
}

func (s *Store) insertOne(ctx context.Context, rec *record.Record) (*record.Record, error) {
	stmt := s.compiler.Insert(s.table, rec, true)

	if s.returning() {
		rows, err := s.query(ctx, stmt)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("insert into %s returned no row", s.table)
		}
		return rows[0], nil
	}

	res, err := s.exec1(ctx, stmt)
	if err != nil {
		return nil, err
	}
	id := rec.Value(s.idField)
	if record.IsNull(id) {
		if !res.HasLastInsertID {
			return nil, fmt.Errorf("insert into %s: driver reported no generated id", s.table)
		}
		id = record.Int(res.LastInsertID)
	}

	rows, err := s.Find(ctx, query.New(query.IDFilter(s.idField, id)))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("inserted row %s not found in %s", record.Format(id), s.table)
	}
	return rows[0], nil
}

// Update sets data on every row matching f and returns the updated rows.
func (s *Store) Update(ctx context.Context, f *query.Filter, data *record.Record) ([]*record.Record, error) {
	if s.returning() {
		stmt, err := s.compiler.Update(s.table, data, f, true)
		if err != nil {
			return nil, err
		}
		return s.query(ctx, stmt)
	}

	ids, err := s.ids(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*record.Record{}, nil
	}
	scope := query.IDsFilter(s.idField, ids)
	stmt, err := s.compiler.Update(s.table, data, scope, false)
	if err != nil {
		return nil, err
	}
	if _, err := s.exec1(ctx, stmt); err != nil {
		return nil, err
	}
	return s.Find(ctx, query.New(scope))
}

// Delete removes every row matching f and returns the removed rows.
func (s *Store) Delete(ctx context.Context, f *query.Filter) ([]*record.Record, error) {
	if s.returning() {
		stmt, err := s.compiler.Delete(s.table, f, true)
		if err != nil {
			return nil, err
		}
		return s.query(ctx, stmt)
	}

	snapshot, err := s.Find(ctx, query.New(f))
	if err != nil {
		return nil, err
	}
	if len(snapshot) == 0 {
		return snapshot, nil
	}
	ids := make([]record.Value, len(snapshot))
	for i, r := range snapshot {
		ids[i] = r.Value(s.idField)
	}
	stmt, err := s.compiler.Delete(s.table, query.IDsFilter(s.idField, ids), false)
	if err != nil {
		return nil, err
	}
	if _, err := s.exec1(ctx, stmt); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Clear deletes every row of the table.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.exec1(ctx, s.compiler.Truncate(s.table))
	return err
}

func (s *Store) ids(ctx context.Context, f *query.Filter) ([]record.Value, error) {
	rows, err := s.Find(ctx, query.New(f).WithSelect(s.idField))
	if err != nil {
		return nil, err
	}
	ids := make([]record.Value, len(rows))
	for i, r := range rows {
		ids[i] = r.Value(s.idField)
	}
	return ids, nil
}

func (s *Store) exec1(ctx context.Context, stmt querysql.Statement) (Result, error) {
	s.log.Debug("Executing statement: %s", stmt.SQL)
	return s.executor(ctx).Exec(ctx, stmt.SQL, stmt.Args...)
}

func (s *Store) query(ctx context.Context, stmt querysql.Statement) ([]*record.Record, error) {
	s.log.Debug("Executing query: %s", stmt.SQL)

	rows, err := s.executor(ctx).Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := rows.Columns()
	out := []*record.Record{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		r := record.New()
		for i, col := range cols {
			v, err := s.decode(col, values[i])
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", col.Name, err)
			}
			r.Set(col.Name, v)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
