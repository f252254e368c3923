package mongodb

import (
	"context"

	"github.com/redbco/wings/pkg/adapter"
	"github.com/redbco/wings/pkg/dbcapabilities"
)

func init() {
	// Register the MongoDB backend with the global registry
	adapter.Register(dbcapabilities.MongoDB, open)
	adapter.RegisterInspector(dbcapabilities.MongoDB, inspect)
}

func open(ctx context.Context, details *dbcapabilities.ConnectionDetails, cfg adapter.BackendConfig) (adapter.Connection, error) {
	return Open(ctx, details.Raw, details.DatabaseName, Config{
		Collection: cfg.Table,
		ID:         cfg.ID,
		Strict:     cfg.Strict,
		Logger:     cfg.Logger,
	})
}
