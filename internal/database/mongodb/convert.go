package mongodb

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redbco/wings/pkg/record"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// encodeValue converts a record value to its BSON form. Times are truncated
// to the millisecond precision of BSON dates.
func encodeValue(v record.Value) any {
	switch x := v.(type) {
	case nil, record.Null:
		return nil
	case record.Bytes:
		return bson.Binary{Data: []byte(x)}
	case record.Time:
		return bson.NewDateTimeFromTime(time.Time(x))
	}
	return v.Native()
}

// encodeRecord builds a document from r with idField first.
func encodeRecord(r *record.Record, idField string) bson.D {
	doc := make(bson.D, 0, r.Len())
	if r.Has(idField) {
		doc = append(doc, bson.E{Key: idField, Value: encodeID(r.Value(idField), idField)})
	}
	for _, k := range r.Keys() {
		if k == idField {
			continue
		}
		doc = append(doc, bson.E{Key: k, Value: encodeValue(r.Value(k))})
	}
	return doc
}

func encodeID(v record.Value, idField string) any {
	if s, ok := v.(record.String); ok && idField == "_id" {
		if oid, err := bson.ObjectIDFromHex(string(s)); err == nil {
			return oid
		}
	}
	return encodeValue(v)
}

// decodeDocument converts a stored document into a record. ObjectIDs become
// hex strings and nested documents or arrays their JSON text.
func decodeDocument(doc bson.D) (*record.Record, error) {
	r := record.New()
	for _, e := range doc {
		v, err := decodeValue(e.Value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", e.Key, err)
		}
		r.Set(e.Key, v)
	}
	return r, nil
}

func decodeValue(v any) (record.Value, error) {
	switch x := v.(type) {
	case bson.ObjectID:
		return record.String(x.Hex()), nil
	case bson.DateTime:
		return record.Time(x.Time().UTC()), nil
	case bson.Timestamp:
		return record.Time(time.Unix(int64(x.T), 0).UTC()), nil
	case bson.Binary:
		return record.Bytes(append([]byte(nil), x.Data...)), nil
	case bson.Decimal128:
		if f, err := strconv.ParseFloat(x.String(), 64); err == nil {
			return record.Float(f), nil
		}
		return record.String(x.String()), nil
	case bson.D, bson.A:
		b, err := json.Marshal(plain(x))
		if err != nil {
			return nil, err
		}
		return record.String(b), nil
	case bson.Null, bson.Undefined:
		return record.Null{}, nil
	}

	out, err := record.FromAny(v)
	if err != nil {
		return record.String(fmt.Sprint(v)), nil
	}
	return out, nil
}

// plain converts nested BSON into values encoding/json understands.
func plain(v any) any {
	switch x := v.(type) {
	case bson.D:
		m := make(map[string]any, len(x))
		for _, e := range x {
			m[e.Key] = plain(e.Value)
		}
		return m
	case bson.A:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = plain(item)
		}
		return out
	case bson.ObjectID:
		return x.Hex()
	case bson.DateTime:
		return x.Time().UTC().Format(time.RFC3339Nano)
	case bson.Binary:
		return x.Data
	case bson.Decimal128:
		return x.String()
	}
	return v
}
