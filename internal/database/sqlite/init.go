package sqlite

import (
	"context"

	"github.com/redbco/wings/internal/database/sqlstore"
	"github.com/redbco/wings/pkg/adapter"
	"github.com/redbco/wings/pkg/dbcapabilities"
)

func init() {
	// Register the SQLite backend with the global registry
	adapter.Register(dbcapabilities.SQLite, open)
	adapter.RegisterInspector(dbcapabilities.SQLite, inspect)
}

func open(ctx context.Context, details *dbcapabilities.ConnectionDetails, cfg adapter.BackendConfig) (adapter.Connection, error) {
	var pragmas []string
	if p := details.Parameters["_pragma"]; p != "" {
		pragmas = append(pragmas, p)
	}
	if mode := details.Parameters["journal_mode"]; mode != "" {
		pragmas = append(pragmas, "journal_mode("+mode+")")
	}
	db, err := OpenDB(ctx, details.Path, pragmas)
	if err != nil {
		return nil, err
	}
	b, err := New(db, sqlstore.Config{Table: cfg.Table, ID: cfg.ID, Strict: cfg.Strict, Logger: cfg.Logger})
	if err != nil {
		db.Close()
		return nil, err
	}
	b.owned = true
	return b, nil
}
