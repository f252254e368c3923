package mysql

import (
	"context"

	"github.com/redbco/wings/internal/database/sqlstore"
	"github.com/redbco/wings/pkg/adapter"
	"github.com/redbco/wings/pkg/dbcapabilities"
)

func init() {
	// Register the MySQL backend with the global registry
	adapter.Register(dbcapabilities.MySQL, open)
	adapter.RegisterInspector(dbcapabilities.MySQL, inspect)
}

func open(ctx context.Context, details *dbcapabilities.ConnectionDetails, cfg adapter.BackendConfig) (adapter.Connection, error) {
	db, err := OpenDB(ctx, DSN(details))
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
