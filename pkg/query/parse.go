package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/redbco/wings/pkg/record"
)

// member is one key of a decoded JSON object. Objects are kept as ordered
// member lists because clause and sort order are significant.
type member struct {
	key string
	val any
}

type object []member

// ParseJSON parses the query wire shape, preserving key order.
func ParseJSON(data []byte) (*Params, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return &Params{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after query object", ErrInvalid)
	}
	obj, ok := v.(object)
	if !ok {
		if v == nil {
			return &Params{}, nil
		}
		return nil, fmt.Errorf("%w: query must be an object", ErrInvalid)
	}
	return parseParams(obj)
}

// ParseMap parses an already decoded query. Object keys are visited in sorted
// order; pass $sort as a list of single-key objects to control sort order.
func ParseMap(m map[string]any) (*Params, error) {
	if m == nil {
		return &Params{}, nil
	}
	return parseParams(fromMap(m))
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '{':
		obj := object{}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			obj = append(obj, member{key: keyTok.(string), val: val})
		}
		_, err := dec.Token()
		return obj, err
	case '[':
		list := []any{}
		for dec.More() {
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			list = append(list, val)
		}
		_, err := dec.Token()
		return list, err
	}
	return nil, fmt.Errorf("unexpected delimiter %q", delim)
}

func fromMap(m map[string]any) object {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	obj := make(object, 0, len(m))
	for _, k := range keys {
		obj = append(obj, member{key: k, val: normalize(m[k])})
	}
	return obj
}

func normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return fromMap(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	case []string:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out
	}
	return v
}

func parseParams(obj object) (*Params, error) {
	p := &Params{}
	filter, err := parseFilter(obj, func(m member) (bool, error) {
		switch m.key {
		case "$select":
			sel, err := parseSelect(m.val)
			p.Select = sel
			return true, err
		case "$sort":
			s, err := parseSort(m.val)
			p.Sort = s
			return true, err
		case "$limit":
			n, err := parseCount(m.key, m.val)
			if err != nil {
				return true, err
			}
			p.Limit = &n
			return true, nil
		case "$skip":
			n, err := parseCount(m.key, m.val)
			p.Skip = n
			return true, err
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	p.Filter = filter
	return p, nil
}

// parseFilter builds a conjunction. topLevel, when set, gets the first look at
// each member and reports whether it consumed it.
func parseFilter(obj object, topLevel func(member) (bool, error)) (*Filter, error) {
	f := &Filter{}
	for _, m := range obj {
		if topLevel != nil {
			done, err := topLevel(m)
			if err != nil {
				return nil, err
			}
			if done {
				continue
			}
		}
		switch {
		case m.key == string(Or) || m.key == string(And):
			l, err := parseLogical(LogicalOp(m.key), m.val)
			if err != nil {
				return nil, err
			}
			f.Entries = append(f.Entries, l)
		case strings.HasPrefix(m.key, "$"):
			if isFilterKey(m.key) {
				return nil, fmt.Errorf("%w: %s is only allowed at the top level", ErrInvalid, m.key)
			}
			f.Entries = append(f.Entries, &Unrecognized{Key: m.key})
		default:
			field, err := parseField(m.key, m.val)
			if err != nil {
				return nil, err
			}
			f.Entries = append(f.Entries, field)
		}
	}
	return f, nil
}

func isFilterKey(k string) bool {
	switch k {
	case "$select", "$sort", "$limit", "$skip":
		return true
	}
	return false
}

func parseLogical(op LogicalOp, v any) (*Logical, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a list", ErrInvalid, op)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: %s requires at least one child", ErrInvalid, op)
	}
	l := &Logical{Op: op, Children: make([]*Filter, 0, len(list))}
	for i, item := range list {
		child, ok := item.(object)
		if !ok {
			return nil, fmt.Errorf("%w: %s[%d] must be an object", ErrInvalid, op, i)
		}
		f, err := parseFilter(child, nil)
		if err != nil {
			return nil, err
		}
		l.Children = append(l.Children, f)
	}
	return l, nil
}

func parseField(name string, v any) (*Field, error) {
	switch x := v.(type) {
	case object:
		field := &Field{Name: name}
		for _, m := range x {
			if !strings.HasPrefix(m.key, "$") {
				return nil, fmt.Errorf("%w: field %q: nested objects are not supported", ErrInvalid, name)
			}
			c, err := parseClause(name, Operator(m.key), m.val)
			if err != nil {
				return nil, err
			}
			field.Clauses = append(field.Clauses, c)
		}
		return field, nil
	case []any:
		return nil, fmt.Errorf("%w: field %q: use $in to match a list of values", ErrInvalid, name)
	default:
		val, err := scalar(name, v)
		if err != nil {
			return nil, err
		}
		return &Field{Name: name, Clauses: []Clause{{Op: OpEq, Value: val}}}, nil
	}
}

func parseClause(name string, op Operator, v any) (Clause, error) {
	c := Clause{Op: op}
	switch op {
	case OpIn, OpNin:
		list, ok := v.([]any)
		if !ok {
			return c, fmt.Errorf("%w: %s on field %q requires a list", ErrInvalid, op, name)
		}
		c.Values = make([]record.Value, 0, len(list))
		for _, item := range list {
			val, err := scalar(name, item)
			if err != nil {
				return c, err
			}
			c.Values = append(c.Values, val)
		}
		return c, nil
	case OpIsNull:
		b, err := parseBool(v)
		if err != nil {
			return c, fmt.Errorf("%w: %s on field %q requires a boolean", ErrInvalid, op, name)
		}
		c.Value = record.Bool(b)
		return c, nil
	}

	if !op.Known() {
		// Keep the operand when it is representable; strict compilers reject
		// the clause anyway and lenient ones drop it.
		if val, err := scalar(name, v); err == nil {
			c.Value = val
		}
		return c, nil
	}
	val, err := scalar(name, v)
	if err != nil {
		return c, err
	}
	c.Value = val
	return c, c.validate(name, false)
}

func scalar(name string, v any) (record.Value, error) {
	switch v.(type) {
	case object, []any, map[string]any:
		return nil, fmt.Errorf("%w: field %q: expected a scalar value", ErrInvalid, name)
	}
	val, err := record.FromAny(v)
	if err != nil {
		return nil, fmt.Errorf("%w: field %q: %v", ErrInvalid, name, err)
	}
	return val, nil
}

func parseBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		return strconv.ParseBool(x)
	}
	return false, fmt.Errorf("not a boolean: %v", v)
}

func parseSelect(v any) ([]string, error) {
	switch x := v.(type) {
	case string:
		return []string{x}, nil
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: $select entries must be strings", ErrInvalid)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: $select must be a list of field names", ErrInvalid)
}

func parseSort(v any) ([]Sort, error) {
	var members []member
	switch x := v.(type) {
	case object:
		members = x
	case []any:
		for i, item := range x {
			obj, ok := item.(object)
			if !ok {
				return nil, fmt.Errorf("%w: $sort[%d] must be an object", ErrInvalid, i)
			}
			members = append(members, obj...)
		}
	default:
		return nil, fmt.Errorf("%w: $sort must be an object", ErrInvalid)
	}

	out := make([]Sort, 0, len(members))
	for _, m := range members {
		dir, err := parseDirection(m.val)
		if err != nil {
			return nil, fmt.Errorf("%w: $sort.%s: %v", ErrInvalid, m.key, err)
		}
		out = append(out, Sort{Field: m.key, Direction: dir})
	}
	return out, nil
}

func parseDirection(v any) (Direction, error) {
	if s, ok := v.(string); ok {
		switch strings.ToLower(s) {
		case "asc", "ascending", "1":
			return Ascending, nil
		case "desc", "descending", "-1":
			return Descending, nil
		}
		return 0, fmt.Errorf("unknown direction %q", s)
	}
	n, err := integer(v)
	if err != nil {
		return 0, err
	}
	switch n {
	case 1:
		return Ascending, nil
	case -1:
		return Descending, nil
	}
	return 0, fmt.Errorf("direction must be 1 or -1, got %d", n)
}

func parseCount(key string, v any) (int, error) {
	n, err := integer(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative", ErrInvalid, key)
	}
	return int(n), nil
}

func integer(v any) (int64, error) {
	switch x := v.(type) {
	case json.Number:
		return x.Int64()
	case string:
		return strconv.ParseInt(x, 10, 64)
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("not an integer: %v", x)
		}
		return int64(x), nil
	case float32:
		return integer(float64(x))
	case record.Value:
		return integer(x.Native())
	}
	val, err := record.FromAny(v)
	if err != nil {
		return 0, err
	}
	if i, ok := val.(record.Int); ok {
		return int64(i), nil
	}
	return 0, fmt.Errorf("not an integer: %v", v)
}
