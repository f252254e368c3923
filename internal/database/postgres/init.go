package postgres

import (
	"context"

	"github.com/redbco/wings/internal/database/sqlstore"
	"github.com/redbco/wings/pkg/adapter"
	"github.com/redbco/wings/pkg/dbcapabilities"
)

func init() {
	// Register the PostgreSQL backend with the global registry
	adapter.Register(dbcapabilities.PostgreSQL, open)
	adapter.RegisterInspector(dbcapabilities.PostgreSQL, inspect)
}

func open(ctx context.Context, details *dbcapabilities.ConnectionDetails, cfg adapter.BackendConfig) (adapter.Connection, error) {
	pool, err := OpenPool(ctx, ConnString(details))
	if err != nil {
		return nil, err
	}
	b, err := New(pool, sqlstore.Config{Table: cfg.Table, ID: cfg.ID, Strict: cfg.Strict, Logger: cfg.Logger})
	if err != nil {
		pool.Close()
		return nil, err
	}
	b.owned = true
	return b, nil
}
