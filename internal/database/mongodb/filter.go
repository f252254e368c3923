package mongodb

import (
	"github.com/redbco/wings/pkg/query"
	"github.com/redbco/wings/pkg/querymatch"
	"github.com/redbco/wings/pkg/record"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Translator lowers query filters to MongoDB filter documents. Missing
// fields behave as null, matching the SQL backends: $ne, $nin and $notlike
// keep documents whose field is null or absent.
type Translator struct {
	// IDField is the document key holding the record id. When it is "_id",
	// 24-digit hex strings compared against it are sent as ObjectIDs.
	IDField string
	Strict  bool
}

// Filter validates f and returns the equivalent filter document.
func (t Translator) Filter(f *query.Filter) (bson.D, error) {
	if err := f.Validate(t.Strict); err != nil {
		return nil, err
	}
	return t.conjunction(f), nil
}

func (t Translator) conjunction(f *query.Filter) bson.D {
	var parts []bson.D
	if f != nil {
		for _, e := range f.Entries {
			switch x := e.(type) {
			case *query.Field:
				for _, cl := range x.Clauses {
					if cl.Op.Known() {
						parts = append(parts, t.clause(x.Name, cl))
					}
				}
			case *query.Logical:
				parts = append(parts, t.logical(x))
			}
		}
	}

	switch len(parts) {
	case 0:
		return bson.D{}
	case 1:
		return parts[0]
	}
	all := make(bson.A, len(parts))
	for i, p := range parts {
		all[i] = p
	}
	return bson.D{{Key: "$and", Value: all}}
}

func (t Translator) logical(l *query.Logical) bson.D {
	children := make(bson.A, len(l.Children))
	for i, c := range l.Children {
		children[i] = t.conjunction(c)
	}
	op := "$and"
	if l.Op == query.Or {
		op = "$or"
	}
	return bson.D{{Key: op, Value: children}}
}

func (t Translator) clause(field string, cl query.Clause) bson.D {
	op := func(name string, v any) bson.D {
		return bson.D{{Key: field, Value: bson.D{{Key: name, Value: v}}}}
	}

	switch cl.Op {
	case query.OpEq:
		return bson.D{{Key: field, Value: t.value(field, cl.Value)}}
	case query.OpNe:
		return op("$ne", t.value(field, cl.Value))
	case query.OpIn:
		return op("$in", t.values(field, cl.Values))
	case query.OpNin:
		return op("$nin", t.values(field, cl.Values))
	case query.OpLt, query.OpLte, query.OpGt, query.OpGte:
		return op(string(cl.Op), t.value(field, cl.Value))
	case query.OpLike:
		return bson.D{{Key: field, Value: like(cl.Value, "s")}}
	case query.OpILike:
		return bson.D{{Key: field, Value: like(cl.Value, "si")}}
	case query.OpNotLike:
		return op("$not", like(cl.Value, "s"))
	case query.OpIsNull:
		if cl.Value == record.Bool(true) {
			return bson.D{{Key: field, Value: nil}}
		}
		return op("$ne", nil)
	}
	return bson.D{}
}

func like(pattern record.Value, options string) bson.Regex {
	return bson.Regex{Pattern: querymatch.LikeSource(record.Format(pattern)), Options: options}
}

func (t Translator) values(field string, vs []record.Value) bson.A {
	out := make(bson.A, len(vs))
	for i, v := range vs {
		out[i] = t.value(field, v)
	}
	return out
}

func (t Translator) value(field string, v record.Value) any {
	if s, ok := v.(record.String); ok && field == "_id" && t.IDField == "_id" {
		if oid, err := bson.ObjectIDFromHex(string(s)); err == nil {
			return oid
		}
	}
	return encodeValue(v)
}
