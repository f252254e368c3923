// Package querysql compiles query filters into parameterized SQL for a
// dbcapabilities.Dialect and assembles the statements the SQL backends run.
//
// Values are always bound as parameters, never interpolated. Placeholders
// are numbered across the whole statement, so SET values and WHERE values
// share one argument list.
package querysql

import (
	"fmt"
	"strings"

	"github.com/redbco/wings/pkg/dbcapabilities"
	"github.com/redbco/wings/pkg/query"
	"github.com/redbco/wings/pkg/record"
)

// Compiler lowers query filters to SQL for one dialect.
type Compiler struct {
	Dialect dbcapabilities.Dialect

	// Strict rejects unknown operators with query.ErrUnknownOperator.
	// When false they are dropped.
	Strict bool
}

// New returns a compiler for the dialect registered under id.
func New(id dbcapabilities.DatabaseID, strict bool) (*Compiler, error) {
	d, ok := dbcapabilities.GetDialect(id)
	if !ok {
		return nil, fmt.Errorf("no SQL dialect for %q", id)
	}
	return &Compiler{Dialect: d, Strict: strict}, nil
}

// Where compiles f into a WHERE fragment (without the keyword) and its ordered
// parameters. An unrestricted filter yields an empty fragment.
func (c *Compiler) Where(f *query.Filter) (string, []any, error) {
	b := &builder{dialect: c.Dialect}
	frag, err := c.where(b, f)
	if err != nil {
		return "", nil, err
	}
	return frag, b.args, nil
}

// builder accumulates bound arguments while a statement is assembled.
type builder struct {
	dialect dbcapabilities.Dialect
	args    []any
}

func (b *builder) bind(v record.Value) string {
	b.args = append(b.args, b.native(v))
	return b.dialect.Bind(len(b.args))
}

func (b *builder) native(v record.Value) any {
	switch x := v.(type) {
	case nil, record.Null:
		return nil
	case record.Bool:
		return b.dialect.BoolValue(bool(x))
	}
	return v.Native()
}

func (b *builder) quote(name string) string {
	return b.dialect.QuoteIdentifier(name)
}

func (c *Compiler) where(b *builder, f *query.Filter) (string, error) {
	if err := f.Validate(c.Strict); err != nil {
		return "", err
	}
	frag, _, err := c.conjunction(b, f)
	return frag, err
}

// conjunction returns the AND-joined fragment of f and the number of conjuncts.
func (c *Compiler) conjunction(b *builder, f *query.Filter) (string, int, error) {
	if f == nil {
		return "", 0, nil
	}
	var parts []string
	for _, e := range f.Entries {
		switch x := e.(type) {
		case *query.Field:
			col := b.quote(x.Name)
			for _, cl := range x.Clauses {
				if !cl.Op.Known() {
					continue
				}
				parts = append(parts, c.clause(b, col, cl))
			}
		case *query.Logical:
			frag, err := c.logical(b, x)
			if err != nil {
				return "", 0, err
			}
			parts = append(parts, frag)
		case *query.Unrecognized:
			// Validate has already rejected these in strict mode.
		default:
			return "", 0, fmt.Errorf("%w: unsupported filter entry %T", query.ErrInvalid, e)
		}
	}
	return strings.Join(parts, " AND "), len(parts), nil
}

func (c *Compiler) logical(b *builder, l *query.Logical) (string, error) {
	sep := " AND "
	if l.Op == query.Or {
		sep = " OR "
	}
	parts := make([]string, 0, len(l.Children))
	for _, child := range l.Children {
		frag, n, err := c.conjunction(b, child)
		if err != nil {
			return "", err
		}
		switch {
		case n == 0:
			frag = "1 = 1"
		case n > 1:
			frag = "(" + frag + ")"
		}
		parts = append(parts, frag)
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func (c *Compiler) clause(b *builder, col string, cl query.Clause) string {
	d := b.dialect
	switch cl.Op {
	case query.OpEq:
		if record.IsNull(cl.Value) {
			return col + " IS NULL"
		}
		return col + " = " + b.bind(cl.Value)
	case query.OpNe:
		if record.IsNull(cl.Value) {
			return col + " IS NOT NULL"
		}
		return d.NotEqual(col, b.bind(cl.Value))
	case query.OpIn:
		return c.in(b, col, cl.Values, false)
	case query.OpNin:
		return c.in(b, col, cl.Values, true)
	case query.OpLt:
		return col + " < " + b.bind(cl.Value)
	case query.OpLte:
		return col + " <= " + b.bind(cl.Value)
	case query.OpGt:
		return col + " > " + b.bind(cl.Value)
	case query.OpGte:
		return col + " >= " + b.bind(cl.Value)
	case query.OpLike:
		return d.LikeExpr(col, b.bind(cl.Value))
	case query.OpNotLike:
		return "(NOT " + d.LikeExpr(col, b.bind(cl.Value)) + " OR " + col + " IS NULL)"
	case query.OpILike:
		if d.NativeILike {
			return col + " ILIKE " + b.bind(cl.Value)
		}
		return "LOWER(" + col + ") LIKE LOWER(" + b.bind(cl.Value) + ")"
	case query.OpIsNull:
		if cl.Value == record.Bool(true) {
			return col + " IS NULL"
		}
		return col + " IS NOT NULL"
	}
	// Unknown operators never reach here; conjunction skips them.
	return "1 = 1"
}

// in compiles $in and $nin. A null in the list matches null fields, which a
// plain SQL IN never does.
func (c *Compiler) in(b *builder, col string, values []record.Value, negate bool) string {
	var placeholders []string
	hasNull := false
	for _, v := range values {
		if record.IsNull(v) {
			hasNull = true
			continue
		}
		placeholders = append(placeholders, b.bind(v))
	}

	if !negate {
		switch {
		case len(placeholders) == 0 && !hasNull:
			return "1 = 0"
		case len(placeholders) == 0:
			return col + " IS NULL"
		case hasNull:
			return "(" + col + " IN (" + strings.Join(placeholders, ", ") + ") OR " + col + " IS NULL)"
		}
		return col + " IN (" + strings.Join(placeholders, ", ") + ")"
	}

	switch {
	case len(placeholders) == 0 && !hasNull:
		return "1 = 1"
	case len(placeholders) == 0:
		return col + " IS NOT NULL"
	case hasNull:
		return col + " NOT IN (" + strings.Join(placeholders, ", ") + ")"
	}
	return "(" + col + " NOT IN (" + strings.Join(placeholders, ", ") + ") OR " + col + " IS NULL)"
}
