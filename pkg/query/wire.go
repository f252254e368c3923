package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redbco/wings/pkg/record"
)

// MarshalJSON renders p in the query wire shape. ParseJSON of the output
// yields an equivalent Params.
func (p *Params) MarshalJSON() ([]byte, error) {
	var w wireWriter
	w.open()
	if p != nil {
		if err := w.filterMembers(p.Filter); err != nil {
			return nil, err
		}
		if p.Select != nil {
			w.key("$select")
			w.any(p.Select)
		}
		if len(p.Sort) > 0 {
			w.key("$sort")
			w.buf.WriteByte('{')
			for i, s := range p.Sort {
				if i > 0 {
					w.buf.WriteByte(',')
				}
				w.any(s.Field)
				w.buf.WriteByte(':')
				w.any(int(s.Direction))
			}
			w.buf.WriteByte('}')
		}
		if p.Limit != nil {
			w.key("$limit")
			w.any(*p.Limit)
		}
		if p.Skip > 0 {
			w.key("$skip")
			w.any(p.Skip)
		}
	}
	w.close()
	return w.buf.Bytes(), w.err
}

// UnmarshalJSON parses the wire shape with ParseJSON.
func (p *Params) UnmarshalJSON(data []byte) error {
	parsed, err := ParseJSON(data)
	if err != nil {
		return err
	}
	*p = *parsed
	return nil
}

type wireWriter struct {
	buf   bytes.Buffer
	count []int
	err   error
}

func (w *wireWriter) open() {
	w.buf.WriteByte('{')
	w.count = append(w.count, 0)
}

func (w *wireWriter) close() {
	w.buf.WriteByte('}')
	w.count = w.count[:len(w.count)-1]
}

func (w *wireWriter) key(k string) {
	top := len(w.count) - 1
	if w.count[top] > 0 {
		w.buf.WriteByte(',')
	}
	w.count[top]++
	w.any(k)
	w.buf.WriteByte(':')
}

func (w *wireWriter) any(v any) {
	data, err := json.Marshal(v)
	if err != nil && w.err == nil {
		w.err = err
	}
	w.buf.Write(data)
}

func (w *wireWriter) value(v record.Value) {
	if t, ok := v.(record.Time); ok {
		w.any(time.Time(t).Format(time.RFC3339Nano))
		return
	}
	if record.IsNull(v) {
		w.buf.WriteString("null")
		return
	}
	w.any(v.Native())
}

func (w *wireWriter) filterMembers(f *Filter) error {
	if f == nil {
		return nil
	}
	for _, e := range f.Entries {
		switch x := e.(type) {
		case *Field:
			w.key(x.Name)
			if len(x.Clauses) == 1 && x.Clauses[0].Op == OpEq {
				w.value(x.Clauses[0].Value)
				continue
			}
			w.open()
			for _, c := range x.Clauses {
				if c.Op == OpEq {
					return fmt.Errorf("%w: field %q mixes equality with operators", ErrInvalid, x.Name)
				}
				w.key(string(c.Op))
				if c.Op == OpIn || c.Op == OpNin {
					w.buf.WriteByte('[')
					for i, v := range c.Values {
						if i > 0 {
							w.buf.WriteByte(',')
						}
						w.value(v)
					}
					w.buf.WriteByte(']')
					continue
				}
				w.value(c.Value)
			}
			w.close()
		case *Logical:
			w.key(string(x.Op))
			w.buf.WriteByte('[')
			for i, child := range x.Children {
				if i > 0 {
					w.buf.WriteByte(',')
				}
				w.open()
				if err := w.filterMembers(child); err != nil {
					return err
				}
				w.close()
			}
			w.buf.WriteByte(']')
		case *Unrecognized:
			w.key(x.Key)
			w.buf.WriteString("null")
		}
	}
	return nil
}
