package adapter

import (
	"bytes"
	"context"
	"encoding/json"

	"golang.org/x/sync/errgroup"

	"github.com/redbco/wings/pkg/query"
	"github.com/redbco/wings/pkg/record"
)

// FindOptions controls the shape of a find result.
type FindOptions struct {
	// Paginate selects the envelope result. Nil means false.
	Paginate *bool
}

// Paginated returns FindOptions requesting the envelope.
func Paginated() FindOptions {
	t := true
	return FindOptions{Paginate: &t}
}

// FindResult is either a bare list of records or, when Paginated is set, the
// envelope {total, limit, skip, data}.
type FindResult struct {
	Paginated bool
	Total     int64
	Limit     int
	Skip      int
	Data      []*record.Record
}

type envelope struct {
	Total int64            `json:"total"`
	Limit int              `json:"limit"`
	Skip  int              `json:"skip"`
	Data  []*record.Record `json:"data"`
}

// MarshalJSON writes the envelope when paginated and a bare array otherwise.
func (r *FindResult) MarshalJSON() ([]byte, error) {
	data := r.Data
	if data == nil {
		data = []*record.Record{}
	}
	if !r.Paginated {
		return json.Marshal(data)
	}
	return json.Marshal(envelope{Total: r.Total, Limit: r.Limit, Skip: r.Skip, Data: data})
}

// UnmarshalJSON accepts either shape.
func (r *FindResult) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		*r = FindResult{}
		return json.Unmarshal(b, &r.Data)
	}
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	*r = FindResult{Paginated: true, Total: env.Total, Limit: env.Limit, Skip: env.Skip, Data: env.Data}
	return nil
}

// effectiveLimit applies the configured default and maximum page size.
func (o PaginateOptions) effectiveLimit(requested *int) *int {
	if requested == nil && o.Default > 0 {
		n := o.Default
		requested = &n
	}
	if o.Max > 0 && (requested == nil || *requested > o.Max) {
		n := o.Max
		requested = &n
	}
	return requested
}

// paginate runs the filter-only count and the page fetch for p.
func (s *Service) paginate(ctx context.Context, p *query.Params) (*FindResult, error) {
	p.Limit = s.opts.Paginate.effectiveLimit(p.Limit)

	result := &FindResult{Paginated: true, Skip: p.Skip}
	if p.Limit != nil {
		result.Limit = *p.Limit
	}

	count := func(ctx context.Context) error {
		total, err := s.backend.Count(ctx, p.Filter)
		if err != nil {
			return err
		}
		result.Total = total
		return nil
	}
	fetch := func(ctx context.Context) error {
		if p.Limit != nil && *p.Limit == 0 {
			result.Data = []*record.Record{}
			return nil
		}
		data, err := s.backend.Find(ctx, p)
		if err != nil {
			return err
		}
		result.Data = data
		return nil
	}

	if s.opts.ConcurrentCount {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return count(gctx) })
		g.Go(func() error { return fetch(gctx) })
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := count(ctx); err != nil {
		return nil, err
	}
	if err := fetch(ctx); err != nil {
		return nil, err
	}
	return result, nil
}
