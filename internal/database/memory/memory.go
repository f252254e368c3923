// Package memory implements an in-process record store.
//
// Records live in insertion order behind a sync.RWMutex. Filters are compiled
// to predicates by a MatcherCompiler and sorting is done by a SorterFunc;
// both default to the querymatch implementations and can be replaced at
// construction.
package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/redbco/wings/pkg/adapter"
	"github.com/redbco/wings/pkg/dbcapabilities"
	"github.com/redbco/wings/pkg/query"
	"github.com/redbco/wings/pkg/querymatch"
	"github.com/redbco/wings/pkg/record"
)

// ErrDuplicateID is returned when a record is inserted with an id already in use.
var ErrDuplicateID = errors.New("duplicate id")

// MatcherCompiler compiles a filter to a predicate.
type MatcherCompiler interface {
	Compile(f *query.Filter) (querymatch.Predicate, error)
}

// SorterFunc builds a comparator for a list of sort keys.
type SorterFunc func(keys []query.Sort) querymatch.Comparator

// Options configures a Store.
type Options struct {
	// ID is the identifier field. Defaults to "id".
	ID string

	// Strict configures the default matcher to reject unknown operators.
	Strict bool

	Matcher MatcherCompiler
	Sorter  SorterFunc
	IDs     IDGenerator
}

// Store is an in-process Backend.
type Store struct {
	id      string
	matcher MatcherCompiler
	sorter  SorterFunc
	ids     IDGenerator

	mu      sync.RWMutex
	order   []key
	records map[key]*record.Record
}

// key identifies a record by id. Integral floats share the key of the
// matching Int so that Int(2) and Float(2) address the same record.
type key struct {
	kind record.Kind
	text string
}

func keyOf(v record.Value) key {
	if f, ok := v.(record.Float); ok && !math.IsInf(float64(f), 0) && f == record.Float(math.Trunc(float64(f))) {
		v = record.Int(int64(f))
	}
	return key{kind: v.Kind(), text: record.Format(v)}
}

// New creates an empty store.
func New(opts Options) *Store {
	if opts.ID == "" {
		opts.ID = adapter.DefaultIDField
	}
	if opts.Matcher == nil {
		opts.Matcher = querymatch.Compiler{Strict: opts.Strict}
	}
	if opts.Sorter == nil {
		opts.Sorter = querymatch.Sorter
	}
	if opts.IDs == nil {
		opts.IDs = Sequence()
	}
	return &Store{
		id:      opts.ID,
		matcher: opts.Matcher,
		sorter:  opts.Sorter,
		ids:     opts.IDs,
		records: make(map[key]*record.Record),
	}
}

func (s *Store) Descriptor() dbcapabilities.DatabaseID { return dbcapabilities.Memory }

func (s *Store) IDField() string { return s.id }

// Close is a no-op; it lets a Store serve as an adapter.Connection.
func (s *Store) Close() error { return nil }

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Find returns copies of the matching records.
func (s *Store) Find(ctx context.Context, p *query.Params) ([]*record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p == nil {
		p = &query.Params{}
	}
	pred, err := s.matcher.Compile(p.Filter)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.match(pred)
	if len(p.Sort) > 0 {
		querymatch.SortRecords(matched, s.sorter(p.Sort))
	}
	matched = window(matched, p.Skip, p.Limit)

	out := make([]*record.Record, len(matched))
	for i, r := range matched {
		if p.Select != nil {
			out[i] = r.Project(p.Select)
		} else {
			out[i] = r.Clone()
		}
	}
	return out, nil
}

// Count returns the number of records matching f.
func (s *Store) Count(ctx context.Context, f *query.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	pred, err := s.matcher.Compile(f)
	if err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.match(pred))), nil
}

// Insert stores copies of records, assigning ids to those without one. The
// batch is rejected as a whole when any id is already taken.
func (s *Store) Insert(ctx context.Context, records []*record.Record) ([]*record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make([]*record.Record, 0, len(records))
	seen := make(map[key]bool, len(records))
	for _, in := range records {
		id := in.Value(s.id)
		if record.IsNull(id) {
			id = s.nextID(seen)
		}
		k := keyOf(id)
		if _, taken := s.records[k]; taken || seen[k] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, record.Format(id))
		}
		seen[k] = true

		r := record.New()
		r.Set(s.id, id)
		for _, f := range in.Keys() {
			if f != s.id {
				r.Set(f, in.Value(f))
			}
		}
		staged = append(staged, r)
	}

	out := make([]*record.Record, len(staged))
	for i, r := range staged {
		k := keyOf(r.Value(s.id))
		s.order = append(s.order, k)
		s.records[k] = r
		out[i] = r.Clone()
	}
	return out, nil
}

// Update merges data into every matching record. The id field is never changed.
func (s *Store) Update(ctx context.Context, f *query.Filter, data *record.Record) ([]*record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pred, err := s.matcher.Compile(f)
	if err != nil {
		return nil, err
	}
	changes := data.Clone()
	changes.Delete(s.id)

	s.mu.Lock()
	defer s.mu.Unlock()

	matched := s.match(pred)
	out := make([]*record.Record, len(matched))
	for i, r := range matched {
		r.Merge(changes)
		out[i] = r.Clone()
	}
	return out, nil
}

// Delete removes every matching record and returns them.
func (s *Store) Delete(ctx context.Context, f *query.Filter) ([]*record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pred, err := s.matcher.Compile(f)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []*record.Record
	kept := s.order[:0]
	for _, k := range s.order {
		r := s.records[k]
		if pred.Match(r) {
			removed = append(removed, r)
			delete(s.records, k)
			continue
		}
		kept = append(kept, k)
	}
	s.order = kept
	if removed == nil {
		removed = []*record.Record{}
	}
	return removed, nil
}

// Clear removes every record. The id sequence is not reset.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.records = make(map[key]*record.Record)
	return nil
}

// match returns the stored records accepted by pred, in insertion order.
// Callers hold s.mu.
func (s *Store) match(pred querymatch.Predicate) []*record.Record {
	var out []*record.Record
	for _, k := range s.order {
		if r := s.records[k]; pred.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// nextID draws ids until one is free. Callers hold s.mu.
func (s *Store) nextID(staged map[key]bool) record.Value {
	for {
		id := s.ids.Next()
		k := keyOf(id)
		if _, taken := s.records[k]; !taken && !staged[k] {
			return id
		}
	}
}

func window(rs []*record.Record, skip int, limit *int) []*record.Record {
	if skip >= len(rs) {
		return nil
	}
	rs = rs[skip:]
	if limit != nil && *limit < len(rs) {
		rs = rs[:*limit]
	}
	return rs
}
