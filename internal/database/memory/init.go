package memory

import (
	"context"
	"fmt"

	"github.com/redbco/wings/pkg/adapter"
	"github.com/redbco/wings/pkg/dbcapabilities"
)

func init() {
	adapter.Register(dbcapabilities.Memory, Open)
}

// Open creates an empty store for a memory:// URL. The ids parameter selects
// the id generator: "sequence" (default) or "uuid".
func Open(_ context.Context, details *dbcapabilities.ConnectionDetails, cfg adapter.BackendConfig) (adapter.Connection, error) {
	opts := Options{ID: cfg.ID, Strict: cfg.Strict}

	switch details.Parameters["ids"] {
	case "", "sequence":
	case "uuid":
		opts.IDs = UUIDs()
	default:
		return nil, fmt.Errorf("%w: unknown id generator %q", adapter.ErrInvalidConfiguration, details.Parameters["ids"])
	}

	return New(opts), nil
}
