package rpc

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/redbco/wings/pkg/adapter"
	"github.com/redbco/wings/pkg/query"
	"github.com/redbco/wings/pkg/record"
)

// Request field names.
const (
	fieldQuery    = "query"
	fieldID       = "id"
	fieldData     = "data"
	fieldAllowAll = "allowAll"
	fieldPaginate = "paginate"
)

// request is a decoded Records request.
type request struct {
	params   *query.Params
	id       record.Value
	data     []*record.Record
	many     bool
	allowAll bool
	paginate *bool
}

func decodeRequest(in *structpb.Struct) (*request, error) {
	req := &request{params: &query.Params{}, id: record.Null{}}
	fields := in.GetFields()

	if v, ok := fields[fieldQuery]; ok && v.GetStructValue() != nil {
		p, err := query.ParseMap(numbers(v.GetStructValue().AsMap()).(map[string]any))
		if err != nil {
			return nil, err
		}
		req.params = p
	}

	if v, ok := fields[fieldID]; ok {
		id, err := record.FromAny(numbers(v.AsInterface()))
		if err != nil {
			return nil, adapter.NewBadRequest("id: %v", err)
		}
		req.id = id
	}

	if v, ok := fields[fieldData]; ok {
		switch x := v.GetKind().(type) {
		case *structpb.Value_StructValue:
			r, err := decodeRecord(x.StructValue)
			if err != nil {
				return nil, err
			}
			req.data = []*record.Record{r}
		case *structpb.Value_ListValue:
			req.many = true
			for i, item := range x.ListValue.GetValues() {
				s := item.GetStructValue()
				if s == nil {
					return nil, adapter.NewBadRequest("data[%d] must be an object", i)
				}
				r, err := decodeRecord(s)
				if err != nil {
					return nil, err
				}
				req.data = append(req.data, r)
			}
		default:
			return nil, adapter.NewBadRequest("data must be an object or a list of objects")
		}
	}

	req.allowAll = fields[fieldAllowAll].GetBoolValue()
	if v, ok := fields[fieldPaginate]; ok {
		b := v.GetBoolValue()
		req.paginate = &b
	}
	return req, nil
}

func decodeRecord(s *structpb.Struct) (*record.Record, error) {
	r, err := record.FromMap(numbers(s.AsMap()).(map[string]any))
	if err != nil {
		return nil, adapter.NewBadRequest("data: %v", err)
	}
	return r, nil
}

// numbers turns integral floats, which is how Struct carries every number,
// back into integers.
func numbers(v any) any {
	switch x := v.(type) {
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return int64(x)
		}
		return x
	case map[string]any:
		for k, e := range x {
			x[k] = numbers(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = numbers(e)
		}
		return x
	}
	return v
}

// encode converts any JSON-marshalable result into a Value.
func encode(v any) (*structpb.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var plain any
	if err := json.Unmarshal(b, &plain); err != nil {
		return nil, err
	}
	return structpb.NewValue(plain)
}

// decode converts a Value into out through its JSON form.
func decode(v *structpb.Value, out any) error {
	b, err := json.Marshal(v.AsInterface())
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func valueOf(v record.Value) (*structpb.Value, error) {
	switch x := v.(type) {
	case nil, record.Null:
		return structpb.NewNullValue(), nil
	case record.Time:
		return structpb.NewStringValue(time.Time(x).Format(time.RFC3339Nano)), nil
	}
	return structpb.NewValue(v.Native())
}

// queryValue encodes p in the wire shape. $sort is sent as a list so key
// order survives the unordered Struct.
func queryValue(p *query.Params) (*structpb.Value, error) {
	if p == nil {
		return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{}}), nil
	}
	b, err := p.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	if len(p.Sort) > 0 {
		keys := make([]any, len(p.Sort))
		for i, s := range p.Sort {
			keys[i] = map[string]any{s.Field: int(s.Direction)}
		}
		m["$sort"] = keys
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return structpb.NewStructValue(s), nil
}

func recordValue(r *record.Record) (*structpb.Value, error) {
	v, err := encode(r)
	if err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}
	return v, nil
}
