package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Record is an ordered mapping of field name to Value. A nil *Record is the
// absent record; read accessors are safe on nil.
type Record struct {
	keys []string
	vals map[string]Value
}

// New returns an empty record.
func New() *Record {
	return &Record{vals: make(map[string]Value)}
}

// From builds a record from alternating field names and Go values, keeping
// argument order. It panics on malformed input and is meant for literals.
func From(kv ...any) *Record {
	if len(kv)%2 != 0 {
		panic("record: From requires field/value pairs")
	}
	r := New()
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("record: field name at position %d is %T", i, kv[i]))
		}
		r.Set(key, Of(kv[i+1]))
	}
	return r
}

// FromMap converts a decoded map. Keys are taken in sorted order since Go
// maps carry none.
func FromMap(m map[string]any) (*Record, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	r := New()
	for _, k := range keys {
		v, err := FromAny(m[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		r.Set(k, v)
	}
	return r, nil
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (Value, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.vals[key]
	return v, ok
}

// Value returns the value stored under key, or Null when the field is missing.
func (r *Record) Value(key string) Value {
	if v, ok := r.Get(key); ok && v != nil {
		return v
	}
	return Null{}
}

// Has reports whether key is present.
func (r *Record) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Set stores v under key. New keys are appended; existing keys keep their position.
func (r *Record) Set(key string, v Value) {
	if v == nil {
		v = Null{}
	}
	if r.vals == nil {
		r.vals = make(map[string]Value)
	}
	if _, ok := r.vals[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.vals[key] = v
}

// Delete removes key.
func (r *Record) Delete(key string) {
	if r == nil {
		return
	}
	if _, ok := r.vals[key]; !ok {
		return
	}
	delete(r.vals, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the field names in order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Clone returns a copy that shares no mutable state with r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := &Record{keys: make([]string, len(r.keys)), vals: make(map[string]Value, len(r.vals))}
	copy(out.keys, r.keys)
	for k, v := range r.vals {
		if b, ok := v.(Bytes); ok {
			v = Bytes(bytes.Clone(b))
		}
		out.vals[k] = v
	}
	return out
}

// Project keeps only the listed fields, in the record's own order.
func (r *Record) Project(fields []string) *Record {
	if r == nil {
		return nil
	}
	keep := make(map[string]bool, len(fields))
	for _, f := range fields {
		keep[f] = true
	}
	out := New()
	for _, k := range r.keys {
		if keep[k] {
			out.Set(k, r.vals[k])
		}
	}
	return out
}

// Merge copies every field of other into r, overwriting existing values.
func (r *Record) Merge(other *Record) {
	for _, k := range other.Keys() {
		r.Set(k, other.vals[k])
	}
}

// Equal reports whether both records hold the same fields with equal values.
// Field order is not significant.
func (r *Record) Equal(other *Record) bool {
	if r == nil || other == nil {
		return r == nil && other == nil
	}
	if len(r.keys) != len(other.keys) {
		return false
	}
	for _, k := range r.keys {
		ov, ok := other.vals[k]
		if !ok || !Equal(r.vals[k], ov) {
			return false
		}
	}
	return true
}

// Map returns the record as a map of native Go values.
func (r *Record) Map() map[string]any {
	out := make(map[string]any, r.Len())
	for _, k := range r.Keys() {
		out[k] = r.vals[k].Native()
	}
	return out
}

func (r *Record) String() string {
	if r == nil {
		return "null"
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "%s: %s", k, Format(r.vals[k]))
	}
	buf.WriteByte('}')
	return buf.String()
}

// MarshalJSON writes the record as a JSON object in field order.
func (r *Record) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := marshalValue(r.vals[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a flat JSON object, keeping key order. Nested objects
// and arrays are rejected with ErrUnsupportedValue.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record: expected JSON object")
	}

	*r = Record{vals: make(map[string]Value)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key := tok.(string)

		tok, err = dec.Token()
		if err != nil {
			return err
		}
		if _, ok := tok.(json.Delim); ok {
			return fmt.Errorf("field %q: %w: nested value", key, ErrUnsupportedValue)
		}
		v, err := FromAny(tok)
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		r.Set(key, v)
	}
	_, err = dec.Token()
	return err
}
