package dbcapabilities

import (
	"sort"
	"strings"
)

// DatabaseID is the canonical identifier for a storage backend supported by wings.
// Use these constants to look up capability information.
type DatabaseID string

const (
	// In-process
	Memory DatabaseID = "memory"

	// Relational SQL
	SQLite     DatabaseID = "sqlite"
	PostgreSQL DatabaseID = "postgres"
	MySQL      DatabaseID = "mysql"

	// Document
	MongoDB DatabaseID = "mongodb"
)

// DataParadigm enumerates the primary data storage paradigms a backend supports.
type DataParadigm string

const (
	ParadigmInProcess  DataParadigm = "inprocess"  // Records held in process memory
	ParadigmRelational DataParadigm = "relational" // Tables, SQL
	ParadigmDocument   DataParadigm = "document"   // Collections, documents
)

// Capability describes a backend in a way that the adapter core and its callers can consume uniformly.
type Capability struct {
	// Human-friendly vendor or product name, e.g., "PostgreSQL".
	Name string `json:"name"`

	// Canonical ID used across the codebase, e.g., "postgres".
	ID DatabaseID `json:"id"`

	// Primary data storage paradigms supported.
	Paradigms []DataParadigm `json:"paradigms"`

	// Whether the backend compiles queries to SQL through a Dialect.
	SQL bool `json:"sql"`

	// Whether the backend needs a network address in its connection string.
	RequiresHost bool `json:"requiresHost"`

	// Default network port, 0 when not applicable.
	DefaultPort int `json:"defaultPort,omitempty"`

	// Common aliases (URL schemes, drivers, env labels) that map to this backend.
	Aliases []string `json:"aliases,omitempty"`
}

// All is a registry of capabilities keyed by the canonical database ID.
var All = map[DatabaseID]Capability{
	Memory: {
		Name:      "Memory",
		ID:        Memory,
		Paradigms: []DataParadigm{ParadigmInProcess},
		Aliases:   []string{"mem", "inmemory"},
	},
	SQLite: {
		Name:      "SQLite",
		ID:        SQLite,
		Paradigms: []DataParadigm{ParadigmRelational},
		SQL:       true,
		Aliases:   []string{"sqlite3", "file"},
	},
	PostgreSQL: {
		Name:         "PostgreSQL",
		ID:           PostgreSQL,
		Paradigms:    []DataParadigm{ParadigmRelational},
		SQL:          true,
		RequiresHost: true,
		DefaultPort:  5432,
		Aliases:      []string{"postgresql", "pg", "pgsql"},
	},
	MySQL: {
		Name:         "MySQL",
		ID:           MySQL,
		Paradigms:    []DataParadigm{ParadigmRelational},
		SQL:          true,
		RequiresHost: true,
		DefaultPort:  3306,
		Aliases:      []string{"mariadb", "aurora-mysql"},
	},
	MongoDB: {
		Name:         "MongoDB",
		ID:           MongoDB,
		Paradigms:    []DataParadigm{ParadigmDocument},
		RequiresHost: true,
		DefaultPort:  27017,
		Aliases:      []string{"mongo", "mongodb+srv"},
	},
}

var nameToID map[string]DatabaseID

func init() {
	nameToID = make(map[string]DatabaseID, len(All)*3)
	for id, c := range All {
		nameToID[strings.ToLower(string(id))] = id
		if c.Name != "" {
			nameToID[strings.ToLower(c.Name)] = id
		}
		for _, a := range c.Aliases {
			if a == "" {
				continue
			}
			nameToID[strings.ToLower(a)] = id
		}
	}
}

// ParseID resolves an arbitrary backend name (canonical id, alias, or product name)
// to a canonical DatabaseID. Returns false if unknown.
func ParseID(name string) (DatabaseID, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return "", false
	}
	id, ok := nameToID[n]
	return id, ok
}

// IDs returns every known database ID in sorted order.
func IDs() []DatabaseID {
	out := make([]DatabaseID, 0, len(All))
	for id := range All {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Get returns capabilities for the given ID and a boolean indicating existence.
func Get(id DatabaseID) (Capability, bool) {
	c, ok := All[id]
	return c, ok
}

// MustGet returns capabilities for the given ID and panics if not found.
func MustGet(id DatabaseID) Capability {
	c, ok := Get(id)
	if !ok {
		panic("dbcapabilities: unknown database id: " + string(id))
	}
	return c
}

// GetByName returns the Capability by looking up using a free-form name (id or alias).
func GetByName(name string) (Capability, bool) {
	if id, ok := ParseID(name); ok {
		return Get(id)
	}
	return Capability{}, false
}

// SupportsParadigm reports whether the backend supports a given data paradigm.
func SupportsParadigm(id DatabaseID, p DataParadigm) bool {
	c, ok := Get(id)
	if !ok {
		return false
	}
	for _, dp := range c.Paradigms {
		if dp == p {
			return true
		}
	}
	return false
}

// IsSQL reports whether queries for id compile through a Dialect.
func IsSQL(id DatabaseID) bool {
	c, ok := Get(id)
	return ok && c.SQL
}
