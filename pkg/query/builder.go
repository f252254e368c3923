package query

import "github.com/redbco/wings/pkg/record"

// Where builds a conjunction of entries.
func Where(entries ...Entry) *Filter {
	return &Filter{Entries: entries}
}

// Eq is implicit equality on a field. A nil value tests for null.
func Eq(field string, v any) *Field {
	return &Field{Name: field, Clauses: []Clause{{Op: OpEq, Value: record.Of(v)}}}
}

// Cond applies several operators to one field.
func Cond(field string, clauses ...Clause) *Field {
	return &Field{Name: field, Clauses: clauses}
}

// AnyOf is a $or over the given filters.
func AnyOf(children ...*Filter) *Logical {
	return &Logical{Op: Or, Children: children}
}

// AllOf is a $and over the given filters.
func AllOf(children ...*Filter) *Logical {
	return &Logical{Op: And, Children: children}
}

func In(vs ...any) Clause     { return Clause{Op: OpIn, Values: values(vs)} }
func Nin(vs ...any) Clause    { return Clause{Op: OpNin, Values: values(vs)} }
func Lt(v any) Clause         { return Clause{Op: OpLt, Value: record.Of(v)} }
func Lte(v any) Clause        { return Clause{Op: OpLte, Value: record.Of(v)} }
func Gt(v any) Clause         { return Clause{Op: OpGt, Value: record.Of(v)} }
func Gte(v any) Clause        { return Clause{Op: OpGte, Value: record.Of(v)} }
func Ne(v any) Clause         { return Clause{Op: OpNe, Value: record.Of(v)} }
func Like(p string) Clause    { return Clause{Op: OpLike, Value: record.String(p)} }
func NotLike(p string) Clause { return Clause{Op: OpNotLike, Value: record.String(p)} }
func ILike(p string) Clause   { return Clause{Op: OpILike, Value: record.String(p)} }
func IsNull(b bool) Clause    { return Clause{Op: OpIsNull, Value: record.Bool(b)} }

func values(vs []any) []record.Value {
	out := make([]record.Value, len(vs))
	for i, v := range vs {
		out[i] = record.Of(v)
	}
	return out
}

// IDFilter matches the record whose idField equals id.
func IDFilter(idField string, id record.Value) *Filter {
	return Where(&Field{Name: idField, Clauses: []Clause{{Op: OpEq, Value: id}}})
}

// IDsFilter matches records whose idField is one of ids.
func IDsFilter(idField string, ids []record.Value) *Filter {
	return Where(&Field{Name: idField, Clauses: []Clause{{Op: OpIn, Values: ids}}})
}
