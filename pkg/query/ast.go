package query

import (
	"errors"
	"fmt"

	"github.com/redbco/wings/pkg/record"
)

var (
	// ErrInvalid is returned for a malformed query.
	ErrInvalid = errors.New("invalid query")

	// ErrUnknownOperator is returned by strict compilers for an operator
	// outside the recognized vocabulary.
	ErrUnknownOperator = errors.New("unknown query operator")
)

// Operator is a field-level comparison operator.
type Operator string

const (
	// OpEq is implicit equality, produced by a plain scalar value. It has no
	// wire spelling of its own.
	OpEq      Operator = "="
	OpIn      Operator = "$in"
	OpNin     Operator = "$nin"
	OpLt      Operator = "$lt"
	OpLte     Operator = "$lte"
	OpGt      Operator = "$gt"
	OpGte     Operator = "$gte"
	OpNe      Operator = "$ne"
	OpLike    Operator = "$like"
	OpNotLike Operator = "$notlike"
	OpILike   Operator = "$ilike"
	OpIsNull  Operator = "$isNull"
)

var knownOperators = map[Operator]bool{
	OpEq: true, OpIn: true, OpNin: true, OpLt: true, OpLte: true, OpGt: true,
	OpGte: true, OpNe: true, OpLike: true, OpNotLike: true, OpILike: true, OpIsNull: true,
}

// Known reports whether o belongs to the recognized vocabulary.
func (o Operator) Known() bool {
	return knownOperators[o]
}

// Ordering reports whether o is one of $lt, $lte, $gt, $gte.
func (o Operator) Ordering() bool {
	switch o {
	case OpLt, OpLte, OpGt, OpGte:
		return true
	}
	return false
}

// LogicalOp combines child filters.
type LogicalOp string

const (
	And LogicalOp = "$and"
	Or  LogicalOp = "$or"
)

// Clause is one operator applied to a field. Values is used by $in and $nin;
// every other operator reads Value.
type Clause struct {
	Op     Operator
	Value  record.Value
	Values []record.Value
}

// Entry is one conjunct of a Filter: a *Field, a *Logical or an *Unrecognized.
type Entry interface {
	entry()
}

// Field holds the clauses applied to one field, in wire order.
type Field struct {
	Name    string
	Clauses []Clause
}

// Logical is a $and/$or over child filters.
type Logical struct {
	Op       LogicalOp
	Children []*Filter
}

// Unrecognized is a top-level $-prefixed key outside the vocabulary. It is
// kept so compilers can apply their strictness policy.
type Unrecognized struct {
	Key string
}

func (*Field) entry()        {}
func (*Logical) entry()      {}
func (*Unrecognized) entry() {}

// Filter is a conjunction of entries. A nil or empty Filter matches every record.
type Filter struct {
	Entries []Entry
}

// IsEmpty reports whether f has no entries at all.
func (f *Filter) IsEmpty() bool {
	return f == nil || len(f.Entries) == 0
}

// HasConditions reports whether f restricts the matched set through at least
// one recognized clause. Unknown operators never count.
func (f *Filter) HasConditions() bool {
	if f == nil {
		return false
	}
	for _, e := range f.Entries {
		switch x := e.(type) {
		case *Field:
			for _, c := range x.Clauses {
				if c.Op.Known() {
					return true
				}
			}
		case *Logical:
			if x.hasConditions() {
				return true
			}
		}
	}
	return false
}

func (l *Logical) hasConditions() bool {
	if len(l.Children) == 0 {
		return false
	}
	if l.Op == Or {
		// One unrestricted branch makes the whole disjunction unrestricted.
		for _, c := range l.Children {
			if !c.HasConditions() {
				return false
			}
		}
		return true
	}
	for _, c := range l.Children {
		if c.HasConditions() {
			return true
		}
	}
	return false
}

// Conjoin returns a filter holding the entries of every argument in order.
// Nil filters are skipped.
func Conjoin(filters ...*Filter) *Filter {
	out := &Filter{}
	for _, f := range filters {
		if f == nil {
			continue
		}
		out.Entries = append(out.Entries, f.Entries...)
	}
	return out
}

// Validate checks structural invariants: combinators have children, $in and
// $nin carry lists, $isNull carries a boolean and ordering operators carry a
// non-null operand. With strict set, unknown operators are rejected too.
func (f *Filter) Validate(strict bool) error {
	if f == nil {
		return nil
	}
	for _, e := range f.Entries {
		switch x := e.(type) {
		case *Field:
			for _, c := range x.Clauses {
				if err := c.validate(x.Name, strict); err != nil {
					return err
				}
			}
		case *Logical:
			if len(x.Children) == 0 {
				return fmt.Errorf("%w: %s requires at least one child", ErrInvalid, x.Op)
			}
			for _, c := range x.Children {
				if err := c.Validate(strict); err != nil {
					return err
				}
			}
		case *Unrecognized:
			if strict {
				return fmt.Errorf("%w: %s", ErrUnknownOperator, x.Key)
			}
		}
	}
	return nil
}

func (c Clause) validate(field string, strict bool) error {
	switch {
	case !c.Op.Known():
		if strict {
			return fmt.Errorf("%w: %s on field %q", ErrUnknownOperator, c.Op, field)
		}
	case c.Op == OpIsNull:
		if _, ok := c.Value.(record.Bool); !ok {
			return fmt.Errorf("%w: %s on field %q requires a boolean", ErrInvalid, c.Op, field)
		}
	case c.Op.Ordering():
		if record.IsNull(c.Value) {
			return fmt.Errorf("%w: %s on field %q requires a non-null operand", ErrInvalid, c.Op, field)
		}
	case c.Op == OpLike || c.Op == OpNotLike || c.Op == OpILike:
		if _, ok := c.Value.(record.String); !ok {
			return fmt.Errorf("%w: %s on field %q requires a string pattern", ErrInvalid, c.Op, field)
		}
	}
	return nil
}
