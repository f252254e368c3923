package dbcapabilities

import (
	"fmt"
	"strconv"
	"strings"
)

// PlaceholderStyle selects how bound parameters are spelled in SQL text.
type PlaceholderStyle int

const (
	// Positional placeholders are all "?".
	Positional PlaceholderStyle = iota
	// Numbered placeholders are "$1", "$2", ...
	Numbered
)

// IDStrategy selects how a generated id is recovered after an INSERT.
type IDStrategy int

const (
	// IDFromReturning reads the id from the RETURNING row set.
	IDFromReturning IDStrategy = iota
	// IDFromLastInsert reads the driver's last insert id.
	IDFromLastInsert
)

// Dialect carries the per-backend SQL capability flags and formatting rules
// used by the query compiler and the statement builders.
type Dialect struct {
	ID DatabaseID `json:"id"`

	// Identifier quote characters; an embedded close quote is doubled.
	QuoteOpen  string `json:"quoteOpen"`
	QuoteClose string `json:"quoteClose"`

	Placeholder PlaceholderStyle `json:"placeholder"`

	// Whether INSERT/UPDATE/DELETE accept a RETURNING clause.
	SupportsReturning bool       `json:"supportsReturning"`
	InsertID          IDStrategy `json:"insertId"`

	// NoLimit is the LIMIT value meaning "unbounded", used when an OFFSET is
	// present. Empty means OFFSET may appear without LIMIT.
	NoLimit string `json:"noLimit,omitempty"`

	// NativeBoolean is false when booleans must be bound as 1/0.
	NativeBoolean bool `json:"nativeBoolean"`

	// NativeILike is true when ILIKE exists; otherwise both sides are lower-cased.
	NativeILike bool `json:"nativeILike"`

	// Like is a format with two %s verbs (column, placeholder) spelling a
	// case-sensitive LIKE.
	Like string `json:"like"`

	// NullSafeNotEqual is a format with two %s verbs (column, placeholder)
	// spelling an inequality that treats NULL as a distinct value.
	NullSafeNotEqual string `json:"nullSafeNotEqual"`

	// EmptyInsert is the INSERT tail used when a record has no fields.
	EmptyInsert string `json:"emptyInsert"`

	// NullsLastAscending is set when the database orders NULL after every
	// value in ascending order unless told otherwise.
	NullsLastAscending bool `json:"nullsLastAscending"`
}

// Dialects is the registry of SQL dialects keyed by database ID.
var Dialects = map[DatabaseID]Dialect{
	SQLite: {
		ID:                SQLite,
		QuoteOpen:         `"`,
		QuoteClose:        `"`,
		Placeholder:       Positional,
		SupportsReturning: true,
		InsertID:          IDFromReturning,
		NoLimit:           "-1",
		NativeBoolean:     false,
		NativeILike:       false,
		Like:              "%s LIKE %s",
		NullSafeNotEqual:  "%s IS NOT %s",
		EmptyInsert:       "DEFAULT VALUES",
	},
	PostgreSQL: {
		ID:                PostgreSQL,
		QuoteOpen:         `"`,
		QuoteClose:        `"`,
		Placeholder:       Numbered,
		SupportsReturning: true,
		InsertID:          IDFromReturning,
		NativeBoolean:     true,
		NativeILike:       true,
		Like:              "%s LIKE %s",
		NullSafeNotEqual:  "%s IS DISTINCT FROM %s",
		EmptyInsert:       "DEFAULT VALUES",

		NullsLastAscending: true,
	},
	MySQL: {
		ID:                MySQL,
		QuoteOpen:         "`",
		QuoteClose:        "`",
		Placeholder:       Positional,
		SupportsReturning: false,
		InsertID:          IDFromLastInsert,
		NoLimit:           "18446744073709551615",
		NativeBoolean:     false,
		NativeILike:       false,
		Like:              "%s LIKE CAST(%s AS BINARY)",
		NullSafeNotEqual:  "NOT (%s <=> %s)",
		EmptyInsert:       "() VALUES ()",
	},
}

// GetDialect returns the SQL dialect for id.
func GetDialect(id DatabaseID) (Dialect, bool) {
	d, ok := Dialects[id]
	return d, ok
}

// MustGetDialect returns the SQL dialect for id and panics if there is none.
func MustGetDialect(id DatabaseID) Dialect {
	d, ok := GetDialect(id)
	if !ok {
		panic("dbcapabilities: no SQL dialect for database id: " + string(id))
	}
	return d
}

// QuoteIdentifier quotes a column or table name. Dotted names are quoted per
// segment so "app.users" addresses a schema-qualified table.
func (d Dialect) QuoteIdentifier(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		p = strings.ReplaceAll(p, d.QuoteClose, d.QuoteClose+d.QuoteClose)
		parts[i] = d.QuoteOpen + p + d.QuoteClose
	}
	return strings.Join(parts, ".")
}

// Bind returns the placeholder for the n-th parameter, counting from 1.
func (d Dialect) Bind(n int) string {
	if d.Placeholder == Numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// NotEqual spells a null-safe inequality between column and placeholder.
func (d Dialect) NotEqual(column, placeholder string) string {
	if d.NullSafeNotEqual == "" {
		return fmt.Sprintf("(%s <> %s OR %s IS NULL)", column, placeholder, column)
	}
	return fmt.Sprintf(d.NullSafeNotEqual, column, placeholder)
}

// LikeExpr spells a case-sensitive LIKE between column and placeholder.
func (d Dialect) LikeExpr(column, placeholder string) string {
	if d.Like == "" {
		return column + " LIKE " + placeholder
	}
	return fmt.Sprintf(d.Like, column, placeholder)
}

// BoolValue converts a boolean into the value bound for this dialect.
func (d Dialect) BoolValue(b bool) any {
	if d.NativeBoolean {
		return b
	}
	if b {
		return int64(1)
	}
	return int64(0)
}
