// Package compat wraps an adapter.Service with the legacy calling
// convention: missing records raise NotFound, find paginates by default and
// a null id on patch or remove applies the operation to every record the
// query matches.
package compat

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/redbco/wings/pkg/adapter"
	"github.com/redbco/wings/pkg/query"
	"github.com/redbco/wings/pkg/record"
)

// Result is one record or a list of records, depending on how the operation
// was called.
type Result struct {
	One  *record.Record
	Many []*record.Record
	// IsMany is set when the result is a list.
	IsMany bool
}

func one(r *record.Record) *Result { return &Result{One: r} }

func many(rs []*record.Record) *Result {
	if rs == nil {
		rs = []*record.Record{}
	}
	return &Result{Many: rs, IsMany: true}
}

// Records returns the result as a list.
func (r *Result) Records() []*record.Record {
	if r.IsMany {
		return r.Many
	}
	if r.One == nil {
		return nil
	}
	return []*record.Record{r.One}
}

// MarshalJSON writes an object for a single result and an array otherwise.
func (r *Result) MarshalJSON() ([]byte, error) {
	if r.IsMany {
		return json.Marshal(r.Many)
	}
	return json.Marshal(r.One)
}

// UnmarshalJSON accepts an object or an array.
func (r *Result) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		*r = Result{IsMany: true}
		return json.Unmarshal(b, &r.Many)
	}
	if bytes.Equal(b, []byte("null")) {
		*r = Result{}
		return nil
	}
	*r = Result{One: record.New()}
	return json.Unmarshal(b, r.One)
}

// FindOptions controls pagination. Nil Paginate means paginate.
type FindOptions struct {
	Paginate *bool
}

// Service is the legacy facade over an adapter.Service. It owns no storage
// logic.
type Service struct {
	core *adapter.Service
}

// New wraps core.
func New(core *adapter.Service) *Service {
	return &Service{core: core}
}

// Core returns the wrapped service.
func (s *Service) Core() *adapter.Service {
	return s.core
}

// Find paginates unless opts.Paginate is explicitly false.
func (s *Service) Find(ctx context.Context, params *query.Params, opts FindOptions) (*adapter.FindResult, error) {
	paginate := opts.Paginate == nil || *opts.Paginate
	return s.core.Find(ctx, params, adapter.FindOptions{Paginate: &paginate})
}

// Get returns the record or a NotFound error.
func (s *Service) Get(ctx context.Context, id record.Value, params *query.Params) (*record.Record, error) {
	r, err := s.core.Get(ctx, id, params)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, notFound(id)
	}
	return r, nil
}

// Create stores one record.
func (s *Service) Create(ctx context.Context, data *record.Record) (*Result, error) {
	r, err := s.core.Create(ctx, data)
	if err != nil {
		return nil, err
	}
	return one(r), nil
}

// CreateMany stores a list of records.
func (s *Service) CreateMany(ctx context.Context, data []*record.Record) (*Result, error) {
	rs, err := s.core.CreateMany(ctx, data)
	if err != nil {
		return nil, err
	}
	return many(rs), nil
}

// Patch updates the record with the given id, raising NotFound when none
// matches. A null id updates every record matching params.
func (s *Service) Patch(ctx context.Context, id record.Value, data *record.Record, params *query.Params) (*Result, error) {
	if record.IsNull(id) {
		rs, err := s.core.PatchMany(ctx, data, params, true)
		if err != nil {
			return nil, err
		}
		return many(rs), nil
	}

	r, err := s.core.Patch(ctx, id, data, params)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, notFound(id)
	}
	return one(r), nil
}

// Remove deletes the record with the given id, raising NotFound when none
// matches. A null id deletes every record matching params.
func (s *Service) Remove(ctx context.Context, id record.Value, params *query.Params) (*Result, error) {
	if record.IsNull(id) {
		rs, err := s.core.RemoveMany(ctx, params, true)
		if err != nil {
			return nil, err
		}
		return many(rs), nil
	}

	r, err := s.core.Remove(ctx, id, params)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, notFound(id)
	}
	return one(r), nil
}

func notFound(id record.Value) error {
	return adapter.NewNotFound("No record found for id '%s'", record.Format(id))
}
