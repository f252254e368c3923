package adapter

import (
	"context"

	"github.com/redbco/wings/pkg/dbcapabilities"
	"github.com/redbco/wings/pkg/logger"
	"github.com/redbco/wings/pkg/query"
	"github.com/redbco/wings/pkg/record"
)

// Service runs the record operations over one Backend. It holds no state
// besides its configuration and is safe for concurrent use when the backend is.
type Service struct {
	backend Backend
	opts    Options
	log     *logger.Logger
}

// New creates a Service over backend.
func New(backend Backend, opts Options) (*Service, error) {
	opts, err := opts.withDefaults(backend)
	if err != nil {
		return nil, err
	}
	return &Service{backend: backend, opts: opts, log: opts.Logger}, nil
}

// IDField returns the identifier field name.
func (s *Service) IDField() string {
	return s.opts.ID
}

// Backend returns the underlying backend.
func (s *Service) Backend() Backend {
	return s.backend
}

// Descriptor returns the backend's database type.
func (s *Service) Descriptor() dbcapabilities.DatabaseID {
	return s.backend.Descriptor()
}

// Find returns the records matching params, paginated when opts asks for it.
func (s *Service) Find(ctx context.Context, params *query.Params, opts FindOptions) (*FindResult, error) {
	p, err := s.prepare(params)
	if err != nil {
		return nil, err
	}

	if opts.Paginate != nil && *opts.Paginate {
		result, err := s.paginate(ctx, p)
		if err != nil {
			return nil, s.classify("find", err)
		}
		return result, nil
	}

	data, err := s.backend.Find(ctx, p)
	if err != nil {
		return nil, s.classify("find", err)
	}
	return &FindResult{Data: data}, nil
}

// Get returns the record with the given id that also matches params, or nil
// when there is none.
func (s *Service) Get(ctx context.Context, id record.Value, params *query.Params) (*record.Record, error) {
	if err := guardID("get", id); err != nil {
		return nil, err
	}
	p, err := s.prepare(params)
	if err != nil {
		return nil, err
	}
	p.Filter = query.Conjoin(query.IDFilter(s.opts.ID, id), p.Filter)
	p.Sort = nil
	p.Skip = 0
	p.WithLimit(1)

	data, err := s.backend.Find(ctx, p)
	if err != nil {
		return nil, s.classify("get", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return data[0], nil
}

// Create stores one record and returns it as stored.
func (s *Service) Create(ctx context.Context, data *record.Record) (*record.Record, error) {
	created, err := s.CreateMany(ctx, []*record.Record{data})
	if err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, nil
	}
	return created[0], nil
}

// CreateMany stores every record and returns them in input order.
func (s *Service) CreateMany(ctx context.Context, data []*record.Record) ([]*record.Record, error) {
	if len(data) == 0 {
		return []*record.Record{}, nil
	}
	records := make([]*record.Record, len(data))
	for i, d := range data {
		if d == nil {
			return nil, NewBadRequest("create: record %d is null", i)
		}
		records[i] = s.fill(d)
	}

	created, err := s.backend.Insert(ctx, records)
	if err != nil {
		return nil, s.classify("create", err)
	}
	s.log.Debug("created %d records in %s", len(created), s.backend.Descriptor())
	return created, nil
}

// Patch merges data into the record with the given id that also matches
// params. It returns the updated record, or nil when nothing matched.
func (s *Service) Patch(ctx context.Context, id record.Value, data *record.Record, params *query.Params) (*record.Record, error) {
	if err := guardID("patch", id); err != nil {
		return nil, err
	}
	p, err := s.prepare(params)
	if err != nil {
		return nil, err
	}
	p.Filter = query.Conjoin(query.IDFilter(s.opts.ID, id), p.Filter)

	updated, err := s.update(ctx, "patch", p, data)
	if err != nil || len(updated) == 0 {
		return nil, err
	}
	return updated[0], nil
}

// PatchMany merges data into every record matching params. Without a
// restricting query it fails unless allowAll is set.
func (s *Service) PatchMany(ctx context.Context, data *record.Record, params *query.Params, allowAll bool) ([]*record.Record, error) {
	if err := guardMany("PatchMany", params, allowAll); err != nil {
		return nil, err
	}
	p, err := s.prepare(params)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, "patchMany", p, data)
}

// Remove deletes the record with the given id that also matches params. It
// returns the removed record, or nil when nothing matched.
func (s *Service) Remove(ctx context.Context, id record.Value, params *query.Params) (*record.Record, error) {
	if err := guardID("remove", id); err != nil {
		return nil, err
	}
	p, err := s.prepare(params)
	if err != nil {
		return nil, err
	}
	p.Filter = query.Conjoin(query.IDFilter(s.opts.ID, id), p.Filter)

	removed, err := s.delete(ctx, "remove", p)
	if err != nil || len(removed) == 0 {
		return nil, err
	}
	return removed[0], nil
}

// RemoveMany deletes every record matching params. Without a restricting
// query it fails unless allowAll is set.
func (s *Service) RemoveMany(ctx context.Context, params *query.Params, allowAll bool) ([]*record.Record, error) {
	if err := guardMany("RemoveMany", params, allowAll); err != nil {
		return nil, err
	}
	p, err := s.prepare(params)
	if err != nil {
		return nil, err
	}
	return s.delete(ctx, "removeMany", p)
}

// RemoveAll deletes every record. The result is always empty.
func (s *Service) RemoveAll(ctx context.Context) ([]*record.Record, error) {
	if err := s.backend.Clear(ctx); err != nil {
		return nil, s.classify("removeAll", err)
	}
	s.log.Debug("cleared %s", s.backend.Descriptor())
	return []*record.Record{}, nil
}

func (s *Service) update(ctx context.Context, op string, p *query.Params, data *record.Record) ([]*record.Record, error) {
	changes := data.Clone()
	changes.Delete(s.opts.ID)
	if changes.Len() == 0 {
		// Nothing to write; report the records the query selects.
		found, err := s.backend.Find(ctx, p.FilterOnly())
		if err != nil {
			return nil, s.classify(op, err)
		}
		return s.project(found, p), nil
	}

	updated, err := s.backend.Update(ctx, p.Filter, changes)
	if err != nil {
		return nil, s.classify(op, err)
	}
	s.log.Debug("%s updated %d records", op, len(updated))
	return s.project(updated, p), nil
}

func (s *Service) delete(ctx context.Context, op string, p *query.Params) ([]*record.Record, error) {
	removed, err := s.backend.Delete(ctx, p.Filter)
	if err != nil {
		return nil, s.classify(op, err)
	}
	s.log.Debug("%s removed %d records", op, len(removed))
	return s.project(removed, p), nil
}

// prepare copies params, validates the filter and adds the id field to a
// non-empty selection.
func (s *Service) prepare(params *query.Params) (*query.Params, error) {
	p := params.Clone()
	if p.Limit != nil && *p.Limit < 0 {
		return nil, NewBadRequest("$limit must be non-negative")
	}
	if p.Skip < 0 {
		return nil, NewBadRequest("$skip must be non-negative")
	}
	if err := p.Filter.Validate(s.opts.Strict); err != nil {
		return nil, Classify(s.backend.Descriptor(), err)
	}
	p.Select = p.Selection(s.opts.ID)
	return p, nil
}

// fill copies r and adds null for every known field it lacks.
func (s *Service) fill(r *record.Record) *record.Record {
	out := r.Clone()
	for _, f := range s.opts.Fields {
		if f != s.opts.ID && !out.Has(f) {
			out.Set(f, record.Null{})
		}
	}
	return out
}

func (s *Service) project(records []*record.Record, p *query.Params) []*record.Record {
	if records == nil {
		records = []*record.Record{}
	}
	if p.Select == nil {
		return records
	}
	for i, r := range records {
		records[i] = r.Project(p.Select)
	}
	return records
}

func (s *Service) classify(op string, err error) error {
	classified := Classify(s.backend.Descriptor(), err)
	if e, ok := classified.(*Error); ok && e.Kind == KindGeneral {
		s.log.Warn("%s on %s failed: %v", op, s.backend.Descriptor(), err)
	}
	return classified
}
