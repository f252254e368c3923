package adapter

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/redbco/wings/pkg/dbcapabilities"
	"github.com/redbco/wings/pkg/logger"
)

// BackendConfig carries what a backend needs besides its connection details.
type BackendConfig struct {
	// Table is the table or collection the backend serves.
	Table string
	// ID is the identifier field. Empty leaves the choice to the backend:
	// "_id" for MongoDB, DefaultIDField elsewhere.
	ID string
	// Strict rejects unknown query operators.
	Strict bool
	Logger *logger.Logger
}

// Connection is an opened backend that owns its underlying connection.
type Connection interface {
	Backend
	io.Closer
}

// OpenFunc opens a backend from parsed connection details.
type OpenFunc func(ctx context.Context, details *dbcapabilities.ConnectionDetails, cfg BackendConfig) (Connection, error)

// Registry manages the registration and retrieval of backend openers.
type Registry struct {
	openers map[dbcapabilities.DatabaseID]OpenFunc
	mu      sync.RWMutex
}

// NewRegistry creates a new backend registry.
func NewRegistry() *Registry {
	return &Registry{
		openers: make(map[dbcapabilities.DatabaseID]OpenFunc),
	}
}

// Register registers the opener for a database type.
// If an opener for the same database type is already registered, it will be replaced.
func (r *Registry) Register(id dbcapabilities.DatabaseID, fn OpenFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.openers[id] = fn
}

// Get retrieves a registered opener by database type.
// Returns ErrBackendNotFound if the backend is not registered.
func (r *Registry) Get(id dbcapabilities.DatabaseID) (OpenFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, exists := r.openers[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrBackendNotFound, id)
	}

	return fn, nil
}

// IsRegistered checks if a backend is registered for the given database type.
func (r *Registry) IsRegistered(id dbcapabilities.DatabaseID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.openers[id]
	return exists
}

// ListRegistered returns the registered database types in sorted order.
func (r *Registry) ListRegistered() []dbcapabilities.DatabaseID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]dbcapabilities.DatabaseID, 0, len(r.openers))
	for id := range r.openers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

// Unregister removes a backend from the registry.
func (r *Registry) Unregister(id dbcapabilities.DatabaseID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.openers, id)
}

// Open parses a connection URL and opens the backend registered for its scheme.
func (r *Registry) Open(ctx context.Context, url string, cfg BackendConfig) (Connection, error) {
	details, err := dbcapabilities.ParseConnectionString(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	fn, err := r.Get(details.DatabaseType)
	if err != nil {
		return nil, err
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}

	conn, err := fn(ctx, details, cfg)
	if err != nil {
		return nil, Classify(details.DatabaseType, err)
	}

	return conn, nil
}

// globalRegistry is the default global backend registry.
var globalRegistry = NewRegistry()

// Register registers an opener in the global registry.
func Register(id dbcapabilities.DatabaseID, fn OpenFunc) {
	globalRegistry.Register(id, fn)
}

// IsRegistered checks if a backend is registered in the global registry.
func IsRegistered(id dbcapabilities.DatabaseID) bool {
	return globalRegistry.IsRegistered(id)
}

// ListRegistered returns all registered database types from the global registry.
func ListRegistered() []dbcapabilities.DatabaseID {
	return globalRegistry.ListRegistered()
}

// Open opens a backend through the global registry.
func Open(ctx context.Context, url string, cfg BackendConfig) (Connection, error) {
	return globalRegistry.Open(ctx, url, cfg)
}

// GlobalRegistry returns the global backend registry.
func GlobalRegistry() *Registry {
	return globalRegistry
}
