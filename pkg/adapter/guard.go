package adapter

import (
	"github.com/redbco/wings/pkg/query"
	"github.com/redbco/wings/pkg/record"
)

// alternatives names the bulk variant suggested when a single-record
// operation is called without an id.
var alternatives = map[string]struct{ bulk, verb string }{
	"patch":  {"PatchMany", "update"},
	"remove": {"RemoveMany", "remove"},
}

// guardID rejects a missing id. Zero values such as Int(0) and String("")
// are valid ids.
func guardID(op string, id record.Value) error {
	if !record.IsNull(id) {
		return nil
	}
	if alt, ok := alternatives[op]; ok {
		return NewBadRequest("id is required for %s; use %s to %s multiple records", op, alt.bulk, alt.verb)
	}
	return NewBadRequest("id is required for %s", op)
}

// guardMany rejects a bulk write whose filter does not restrict the matched
// set through a recognized condition, unless allowAll is set.
func guardMany(op string, p *query.Params, allowAll bool) error {
	if allowAll {
		return nil
	}
	if p != nil && p.Filter.HasConditions() {
		return nil
	}
	return NewBadRequest("%s requires a query; set allowAll to apply it to every record", op)
}
