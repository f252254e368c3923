package adapter

import (
	"context"
	"fmt"

	"github.com/redbco/wings/pkg/dbcapabilities"
	"github.com/redbco/wings/pkg/logger"
	"github.com/redbco/wings/pkg/query"
	"github.com/redbco/wings/pkg/record"
)

// Backend is the storage collaborator a Service drives. Implementations
// compile the query for their target and execute it; they never apply the
// bulk guard or pagination themselves.
//
// Errors may be raw driver errors. The Service classifies them.
type Backend interface {
	// Descriptor identifies the backend's database type.
	Descriptor() dbcapabilities.DatabaseID

	// IDField is the name of the identifier field.
	IDField() string

	// Find returns records matching p.Filter with sort, select, limit and
	// skip applied. A non-nil p.Select always contains the id field.
	Find(ctx context.Context, p *query.Params) ([]*record.Record, error)

	// Count returns the number of records matching f.
	Count(ctx context.Context, f *query.Filter) (int64, error)

	// Insert stores every record and returns them as stored, in input order.
	Insert(ctx context.Context, records []*record.Record) ([]*record.Record, error)

	// Update merges data into every record matching f and returns the
	// updated records.
	Update(ctx context.Context, f *query.Filter, data *record.Record) ([]*record.Record, error)

	// Delete removes every record matching f and returns what was removed.
	Delete(ctx context.Context, f *query.Filter) ([]*record.Record, error)

	// Clear removes every record.
	Clear(ctx context.Context) error
}

// PaginateOptions configures default and maximum page sizes.
type PaginateOptions struct {
	// Default is the limit applied when a paginated find requests none.
	Default int
	// Max caps the limit of a paginated find.
	Max int
}

// Options configures a Service.
type Options struct {
	// ID is the identifier field. Empty means the backend's IDField.
	ID string

	// Fields is the known field list. Creates fill absent fields with null.
	Fields []string

	// Paginate sets page size defaults for paginated finds.
	Paginate PaginateOptions

	// ConcurrentCount runs the total count and the page fetch of a
	// paginated find in parallel. Leave it off when the context carries a
	// transaction handle that is not safe for concurrent use.
	ConcurrentCount bool

	// Strict rejects unknown query operators instead of dropping them.
	Strict bool

	Logger *logger.Logger
}

const DefaultIDField = "id"

func (o Options) withDefaults(b Backend) (Options, error) {
	if o.ID == "" {
		o.ID = b.IDField()
	}
	if o.ID == "" {
		o.ID = DefaultIDField
	}
	if bid := b.IDField(); bid != "" && bid != o.ID {
		return o, fmt.Errorf("%w: id field %q does not match backend id field %q", ErrInvalidConfiguration, o.ID, bid)
	}
	if o.Paginate.Default < 0 || o.Paginate.Max < 0 {
		return o, fmt.Errorf("%w: negative pagination limit", ErrInvalidConfiguration)
	}
	if o.Logger == nil {
		o.Logger = logger.Discard()
	}
	return o, nil
}
