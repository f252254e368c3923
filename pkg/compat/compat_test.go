package compat

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/wings/internal/database/memory"
	"github.com/redbco/wings/pkg/adapter"
	"github.com/redbco/wings/pkg/query"
	"github.com/redbco/wings/pkg/record"
)

func newFacade(t *testing.T) *Service {
	t.Helper()
	core, err := adapter.New(memory.New(memory.Options{}), adapter.Options{})
	require.NoError(t, err)
	s := New(core)
	_, err = s.CreateMany(context.Background(), []*record.Record{
		record.From("name", "Alice", "age", 25),
		record.From("name", "Bob", "age", 30),
		record.From("name", "Charlie", "age", 35),
	})
	require.NoError(t, err)
	return s
}

func TestGetRaisesNotFound(t *testing.T) {
	s := newFacade(t)

	_, err := s.Get(context.Background(), record.Int(42), nil)
	require.Error(t, err)
	assert.True(t, adapter.IsNotFound(err))
	assert.Equal(t, 404, err.(*adapter.Error).Status())

	// Filtered out is indistinguishable from missing.
	_, err = s.Get(context.Background(), record.Int(0), query.New(query.Where(query.Eq("name", "Bob"))))
	assert.True(t, adapter.IsNotFound(err))

	r, err := s.Get(context.Background(), record.Int(0), nil)
	require.NoError(t, err)
	assert.Equal(t, record.String("Alice"), r.Value("name"))
}

func TestFindPaginatesByDefault(t *testing.T) {
	s := newFacade(t)

	res, err := s.Find(context.Background(), query.New(nil).WithLimit(1), FindOptions{})
	require.NoError(t, err)
	assert.True(t, res.Paginated)
	assert.Equal(t, int64(3), res.Total)

	off := false
	res, err = s.Find(context.Background(), nil, FindOptions{Paginate: &off})
	require.NoError(t, err)
	assert.False(t, res.Paginated)
	assert.Len(t, res.Data, 3)
}

func TestNullIDAppliesToEveryMatch(t *testing.T) {
	s := newFacade(t)
	ctx := context.Background()

	res, err := s.Patch(ctx, nil, record.From("age", 50), query.New(query.Where(query.Cond("age", query.Gte(30)))))
	require.NoError(t, err)
	assert.True(t, res.IsMany)
	assert.Len(t, res.Records(), 2)

	// No query at all still proceeds: the facade opts in to bulk writes.
	res, err = s.Remove(ctx, record.Null{}, nil)
	require.NoError(t, err)
	assert.Len(t, res.Many, 3)

	out, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Equal(t, '[', rune(out[0]))
}

func TestPatchAndRemoveRaiseNotFound(t *testing.T) {
	s := newFacade(t)
	ctx := context.Background()

	_, err := s.Patch(ctx, record.Int(9), record.From("age", 1), nil)
	assert.True(t, adapter.IsNotFound(err))
	_, err = s.Remove(ctx, record.Int(9), nil)
	assert.True(t, adapter.IsNotFound(err))

	res, err := s.Patch(ctx, record.Int(1), record.From("age", 31), nil)
	require.NoError(t, err)
	assert.False(t, res.IsMany)
	out, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"name":"Bob","age":31}`, string(out))

	var back Result
	require.NoError(t, json.Unmarshal(out, &back))
	assert.True(t, res.One.Equal(back.One))
}
