package adapter_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/wings/internal/database/memory"
	"github.com/redbco/wings/pkg/adapter"
	"github.com/redbco/wings/pkg/query"
	"github.com/redbco/wings/pkg/record"
)

func newService(t *testing.T, opts adapter.Options) *adapter.Service {
	t.Helper()
	svc, err := adapter.New(memory.New(memory.Options{}), opts)
	require.NoError(t, err)
	_, err = svc.CreateMany(context.Background(), []*record.Record{
		record.From("name", "Alice", "age", 25),
		record.From("name", "Bob", "age", 30),
		record.From("name", "Charlie", "age", 35),
	})
	require.NoError(t, err)
	return svc
}

func TestFindResultJSON(t *testing.T) {
	svc := newService(t, adapter.Options{})
	p := query.New(nil).WithSort("name", query.Ascending).WithLimit(1).WithSelect("name")

	bare, err := svc.Find(context.Background(), p, adapter.FindOptions{})
	require.NoError(t, err)
	out, err := json.Marshal(bare)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":0,"name":"Alice"}]`, string(out))

	page, err := svc.Find(context.Background(), p, adapter.Paginated())
	require.NoError(t, err)
	out, err = json.Marshal(page)
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":3,"limit":1,"skip":0,"data":[{"id":0,"name":"Alice"}]}`, string(out))

	var decoded adapter.FindResult
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.True(t, decoded.Paginated)
	assert.Equal(t, int64(3), decoded.Total)
	require.Len(t, decoded.Data, 1)
	assert.Equal(t, record.String("Alice"), decoded.Data[0].Value("name"))

	empty, err := json.Marshal(&adapter.FindResult{})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}

func TestPaginateDefaults(t *testing.T) {
	tests := []struct {
		name      string
		opts      adapter.PaginateOptions
		limit     *int
		wantLimit int
		wantLen   int
	}{
		{"unset", adapter.PaginateOptions{}, nil, 0, 3},
		{"default applies", adapter.PaginateOptions{Default: 2}, nil, 2, 2},
		{"max caps", adapter.PaginateOptions{Default: 2, Max: 1}, intp(5), 1, 1},
		{"requested under max", adapter.PaginateOptions{Max: 10}, intp(2), 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(t, adapter.Options{Paginate: tt.opts})
			p := &query.Params{Limit: tt.limit}

			res, err := svc.Find(context.Background(), p, adapter.Paginated())
			require.NoError(t, err)
			assert.Equal(t, tt.wantLimit, res.Limit)
			assert.Len(t, res.Data, tt.wantLen)
			assert.Equal(t, int64(3), res.Total)
		})
	}
}

func intp(n int) *int { return &n }

func TestConcurrentCount(t *testing.T) {
	svc := newService(t, adapter.Options{ConcurrentCount: true})
	p, err := query.ParseJSON([]byte(`{"age":{"$gt":25},"$limit":1}`))
	require.NoError(t, err)

	res, err := svc.Find(context.Background(), p, adapter.Paginated())
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Total)
	assert.Len(t, res.Data, 1)
}

func TestCreateFillsKnownFields(t *testing.T) {
	svc := newService(t, adapter.Options{Fields: []string{"name", "age", "email"}})

	created, err := svc.Create(context.Background(), record.From("name", "Dave"))
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "age", "email"}, created.Keys())
	assert.Equal(t, record.Null{}, created.Value("email"))
}

func TestPatchSelectsFields(t *testing.T) {
	svc := newService(t, adapter.Options{})
	p := query.New(nil).WithSelect("age")

	patched, err := svc.Patch(context.Background(), record.Int(1), record.From("age", 31), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "age"}, patched.Keys())

	// An empty patch writes nothing and reports the current record.
	same, err := svc.Patch(context.Background(), record.Int(1), record.From("id", 9), nil)
	require.NoError(t, err)
	assert.Equal(t, record.Int(31), same.Value("age"))
}

func TestStrictRejectsUnknownOperators(t *testing.T) {
	p, err := query.ParseJSON([]byte(`{"name":{"$regex":"^A"}}`))
	require.NoError(t, err)

	lax := newService(t, adapter.Options{})
	res, err := lax.Find(context.Background(), p, adapter.FindOptions{})
	require.NoError(t, err)
	assert.Len(t, res.Data, 3)

	strict := newService(t, adapter.Options{Strict: true})
	_, err = strict.Find(context.Background(), p, adapter.FindOptions{})
	assert.True(t, adapter.IsBadRequest(err), "got %v", err)
	assert.ErrorIs(t, err, query.ErrUnknownOperator)
}

func TestNegativePagingRejected(t *testing.T) {
	svc := newService(t, adapter.Options{})
	_, err := svc.Find(context.Background(), &query.Params{Skip: -1}, adapter.FindOptions{})
	assert.True(t, adapter.IsBadRequest(err))
}

func TestIDFieldMismatch(t *testing.T) {
	_, err := adapter.New(memory.New(memory.Options{ID: "_id"}), adapter.Options{ID: "id"})
	assert.ErrorIs(t, err, adapter.ErrInvalidConfiguration)

	svc, err := adapter.New(memory.New(memory.Options{ID: "_id"}), adapter.Options{})
	require.NoError(t, err)
	assert.Equal(t, "_id", svc.IDField())
}

// failing is a backend whose Find returns err.
type failing struct {
	*memory.Store
	err   error
	calls atomic.Int32
}

func (f *failing) Find(context.Context, *query.Params) ([]*record.Record, error) {
	f.calls.Add(1)
	return nil, f.err
}

func TestBackendErrorsAreClassified(t *testing.T) {
	raw := errors.New("UNIQUE constraint failed: people.name")
	svc, err := adapter.New(&failing{Store: memory.New(memory.Options{}), err: raw}, adapter.Options{})
	require.NoError(t, err)

	_, err = svc.Find(context.Background(), nil, adapter.FindOptions{})
	var e *adapter.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, adapter.KindBadRequest, e.Kind)
	assert.Equal(t, raw.Error(), e.Message)
	assert.ErrorIs(t, err, raw)
}
