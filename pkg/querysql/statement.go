package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/redbco/wings/pkg/query"
	"github.com/redbco/wings/pkg/record"
)

// Statement is a SQL text with its ordered arguments.
type Statement struct {
	SQL  string
	Args []any
}

func (s Statement) String() string {
	return fmt.Sprintf("%s %v", s.SQL, s.Args)
}

// Select builds the data fetch for p. A $select always includes idField.
func (c *Compiler) Select(table string, p *query.Params, idField string) (Statement, error) {
	if p == nil {
		p = &query.Params{}
	}
	b := &builder{dialect: c.Dialect}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(c.columns(b, p.Selection(idField)))
	sb.WriteString(" FROM ")
	sb.WriteString(b.quote(table))

	if err := c.appendWhere(b, &sb, p.Filter); err != nil {
		return Statement{}, err
	}

	if len(p.Sort) > 0 {
		keys := make([]string, len(p.Sort))
		for i, s := range p.Sort {
			dir := "ASC"
			if s.Direction == query.Descending {
				dir = "DESC"
			}
			if c.Dialect.NullsLastAscending {
				// NULL sorts below every value.
				if s.Direction == query.Descending {
					dir += " NULLS LAST"
				} else {
					dir += " NULLS FIRST"
				}
			}
			keys[i] = b.quote(s.Field) + " " + dir
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(keys, ", "))
	}

	switch {
	case p.Limit != nil:
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(*p.Limit))
	case p.Skip > 0 && c.Dialect.NoLimit != "":
		sb.WriteString(" LIMIT ")
		sb.WriteString(c.Dialect.NoLimit)
	}
	if p.Skip > 0 {
		sb.WriteString(" OFFSET ")
		sb.WriteString(strconv.Itoa(p.Skip))
	}

	return Statement{SQL: sb.String(), Args: b.args}, nil
}

// Count builds a COUNT(*) over the filter alone.
func (c *Compiler) Count(table string, f *query.Filter) (Statement, error) {
	b := &builder{dialect: c.Dialect}
	var sb strings.Builder
	sb.WriteString("SELECT COUNT(*) FROM ")
	sb.WriteString(b.quote(table))
	if err := c.appendWhere(b, &sb, f); err != nil {
		return Statement{}, err
	}
	return Statement{SQL: sb.String(), Args: b.args}, nil
}

// Insert builds a single-row INSERT. With returning set and a dialect that
// supports it, the inserted row comes back through RETURNING *.
func (c *Compiler) Insert(table string, rec *record.Record, returning bool) Statement {
	b := &builder{dialect: c.Dialect}
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(b.quote(table))

	if rec.Len() == 0 {
		sb.WriteString(" ")
		sb.WriteString(c.Dialect.EmptyInsert)
	} else {
		keys := rec.Keys()
		cols := make([]string, len(keys))
		vals := make([]string, len(keys))
		for i, k := range keys {
			cols[i] = b.quote(k)
			vals[i] = b.bind(rec.Value(k))
		}
		sb.WriteString(" (")
		sb.WriteString(strings.Join(cols, ", "))
		sb.WriteString(") VALUES (")
		sb.WriteString(strings.Join(vals, ", "))
		sb.WriteString(")")
	}

	c.appendReturning(&sb, returning)
	return Statement{SQL: sb.String(), Args: b.args}
}

// Update builds an UPDATE setting every field of data on rows matching f.
func (c *Compiler) Update(table string, data *record.Record, f *query.Filter, returning bool) (Statement, error) {
	if data.Len() == 0 {
		return Statement{}, fmt.Errorf("%w: update requires at least one field", query.ErrInvalid)
	}
	b := &builder{dialect: c.Dialect}
	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(b.quote(table))
	sb.WriteString(" SET ")

	keys := data.Keys()
	sets := make([]string, len(keys))
	for i, k := range keys {
		sets[i] = b.quote(k) + " = " + b.bind(data.Value(k))
	}
	sb.WriteString(strings.Join(sets, ", "))

	if err := c.appendWhere(b, &sb, f); err != nil {
		return Statement{}, err
	}
	c.appendReturning(&sb, returning)
	return Statement{SQL: sb.String(), Args: b.args}, nil
}

// Delete builds a DELETE of rows matching f.
func (c *Compiler) Delete(table string, f *query.Filter, returning bool) (Statement, error) {
	b := &builder{dialect: c.Dialect}
	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(b.quote(table))
	if err := c.appendWhere(b, &sb, f); err != nil {
		return Statement{}, err
	}
	c.appendReturning(&sb, returning)
	return Statement{SQL: sb.String(), Args: b.args}, nil
}

// Truncate builds an unconditional DELETE of every row.
func (c *Compiler) Truncate(table string) Statement {
	return Statement{SQL: "DELETE FROM " + c.Dialect.QuoteIdentifier(table)}
}

func (c *Compiler) columns(b *builder, fields []string) string {
	if len(fields) == 0 {
		return "*"
	}
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = b.quote(f)
	}
	return strings.Join(cols, ", ")
}

func (c *Compiler) appendWhere(b *builder, sb *strings.Builder, f *query.Filter) error {
	frag, err := c.where(b, f)
	if err != nil {
		return err
	}
	if frag != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(frag)
	}
	return nil
}

func (c *Compiler) appendReturning(sb *strings.Builder, returning bool) {
	if returning && c.Dialect.SupportsReturning {
		sb.WriteString(" RETURNING *")
	}
}
