// Package dbtest holds the behaviour checks every backend must pass. Backend
// packages call Run from their tests with a factory returning an empty
// backend whose records carry the fields name, age and active.
package dbtest

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/wings/pkg/adapter"
	"github.com/redbco/wings/pkg/query"
	"github.com/redbco/wings/pkg/record"
)

// Factory returns an empty backend. It is called once per subtest.
type Factory func(t *testing.T) adapter.Backend

// Schema is the table definition SQL backends create for Run, with the id
// column declaration left to the caller.
const Schema = `CREATE TABLE %s (%s, name VARCHAR(64), age INTEGER, active BOOLEAN)`

// Run executes the backend behaviour suite.
func Run(t *testing.T, newBackend Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, svc *adapter.Service)
	}{
		{"CreateThenGet", testCreateThenGet},
		{"CreateManyKeepsOrder", testCreateManyKeepsOrder},
		{"GetFilteredOut", testGetFilteredOut},
		{"SingleRecordGuard", testSingleRecordGuard},
		{"BulkGuard", testBulkGuard},
		{"Pagination", testPagination},
		{"LimitZero", testLimitZero},
		{"SortNullsFirst", testSortNullsFirst},
		{"SelectAddsID", testSelectAddsID},
		{"Or", testOr},
		{"IsNullComplement", testIsNullComplement},
		{"NegationsKeepNull", testNegationsKeepNull},
		{"Like", testLike},
		{"Boolean", testBoolean},
		{"PatchAndRemove", testPatchAndRemove},
		{"RemoveManyAndAll", testRemoveManyAndAll},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := adapter.New(newBackend(t), adapter.Options{})
			require.NoError(t, err)
			tt.fn(t, svc)
		})
	}
}

// Seed stores Alice (25), Bob (30) and Charlie (35).
func Seed(t *testing.T, svc *adapter.Service) []*record.Record {
	t.Helper()
	created, err := svc.CreateMany(context.Background(), []*record.Record{
		record.From("name", "Alice", "age", 25, "active", true),
		record.From("name", "Bob", "age", 30, "active", false),
		record.From("name", "Charlie", "age", 35, "active", true),
	})
	require.NoError(t, err)
	require.Len(t, created, 3)
	return created
}

// Names returns the name field of each record.
func Names(rs []*record.Record) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, record.Format(r.Value("name")))
	}
	return out
}

// SortedNames returns Names in sorted order, for backends without a natural order.
func SortedNames(rs []*record.Record) []string {
	out := Names(rs)
	sort.Strings(out)
	return out
}

func mustParse(t *testing.T, wire string) *query.Params {
	t.Helper()
	p, err := query.ParseJSON([]byte(wire))
	require.NoError(t, err)
	return p
}

func find(t *testing.T, svc *adapter.Service, wire string) []*record.Record {
	t.Helper()
	res, err := svc.Find(context.Background(), mustParse(t, wire), adapter.FindOptions{})
	require.NoError(t, err)
	return res.Data
}

func testCreateThenGet(t *testing.T, svc *adapter.Service) {
	ctx := context.Background()
	in := record.From("name", "Alice", "age", 25)

	created, err := svc.Create(ctx, in)
	require.NoError(t, err)
	id := created.Value(svc.IDField())
	require.False(t, record.IsNull(id))

	for _, k := range in.Keys() {
		assert.True(t, record.Equal(in.Value(k), created.Value(k)), k)
	}

	got, err := svc.Get(ctx, id, nil)
	require.NoError(t, err)
	assert.True(t, created.Equal(got), "got %s, want %s", got, created)
}

func testCreateManyKeepsOrder(t *testing.T, svc *adapter.Service) {
	created := Seed(t, svc)
	assert.Equal(t, []string{"Alice", "Bob", "Charlie"}, Names(created))
}

func testGetFilteredOut(t *testing.T, svc *adapter.Service) {
	ctx := context.Background()
	created := Seed(t, svc)
	id := created[0].Value(svc.IDField())

	got, err := svc.Get(ctx, id, mustParse(t, `{"name":"Bob"}`))
	require.NoError(t, err)
	assert.Nil(t, got)

	patched, err := svc.Patch(ctx, id, record.From("age", 99), mustParse(t, `{"name":"Bob"}`))
	require.NoError(t, err)
	assert.Nil(t, patched)

	got, err = svc.Get(ctx, id, mustParse(t, `{"name":"Alice"}`))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, record.Equal(record.Int(25), got.Value("age")))
}

func testSingleRecordGuard(t *testing.T, svc *adapter.Service) {
	ctx := context.Background()
	Seed(t, svc)

	_, err := svc.Patch(ctx, nil, record.From("age", 1), nil)
	require.Error(t, err)
	assert.Equal(t, adapter.KindBadRequest, adapter.KindOf(err))
	assert.Contains(t, err.Error(), "PatchMany")

	_, err = svc.Remove(ctx, record.Null{}, nil)
	require.Error(t, err)
	assert.Equal(t, adapter.KindBadRequest, adapter.KindOf(err))
	assert.Contains(t, err.Error(), "RemoveMany")

	all := find(t, svc, `{}`)
	assert.Len(t, all, 3)
}

func testBulkGuard(t *testing.T, svc *adapter.Service) {
	ctx := context.Background()
	Seed(t, svc)

	_, err := svc.PatchMany(ctx, record.From("age", 1), mustParse(t, `{}`), false)
	assert.True(t, adapter.IsBadRequest(err), "got %v", err)

	_, err = svc.RemoveMany(ctx, nil, false)
	assert.True(t, adapter.IsBadRequest(err), "got %v", err)

	// An unknown operator alone does not scope the write.
	_, err = svc.PatchMany(ctx, record.From("age", 1), mustParse(t, `{"name":{"$regex":"x"}}`), false)
	assert.True(t, adapter.IsBadRequest(err), "got %v", err)

	updated, err := svc.PatchMany(ctx, record.From("age", 40), mustParse(t, `{}`), true)
	require.NoError(t, err)
	assert.Len(t, updated, 3)
	for _, r := range find(t, svc, `{}`) {
		assert.True(t, record.Equal(record.Int(40), r.Value("age")))
	}
}

func testPagination(t *testing.T, svc *adapter.Service) {
	Seed(t, svc)
	p := mustParse(t, `{"$sort":{"name":1},"$skip":1,"$limit":2}`)

	res, err := svc.Find(context.Background(), p, adapter.Paginated())
	require.NoError(t, err)
	assert.True(t, res.Paginated)
	assert.Equal(t, int64(3), res.Total)
	assert.Equal(t, 2, res.Limit)
	assert.Equal(t, 1, res.Skip)
	assert.Equal(t, []string{"Bob", "Charlie"}, Names(res.Data))

	res, err = svc.Find(context.Background(), mustParse(t, `{"$sort":{"age":-1}}`), adapter.FindOptions{})
	require.NoError(t, err)
	assert.False(t, res.Paginated)
	assert.Equal(t, []string{"Charlie", "Bob", "Alice"}, Names(res.Data))
}

func testSortNullsFirst(t *testing.T, svc *adapter.Service) {
	Seed(t, svc)
	_, err := svc.Create(context.Background(), record.From("name", "Dave", "age", nil))
	require.NoError(t, err)

	assert.Equal(t, []string{"Dave"}, Names(find(t, svc, `{"$sort":{"age":1},"$limit":1}`)))
	assert.Equal(t, []string{"Charlie", "Bob", "Alice", "Dave"}, Names(find(t, svc, `{"$sort":{"age":-1}}`)))
}

func testLimitZero(t *testing.T, svc *adapter.Service) {
	Seed(t, svc)
	res, err := svc.Find(context.Background(), mustParse(t, `{"$limit":0}`), adapter.Paginated())
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Total)
	assert.Empty(t, res.Data)
	assert.NotNil(t, res.Data)
}

func testSelectAddsID(t *testing.T, svc *adapter.Service) {
	Seed(t, svc)
	for _, r := range find(t, svc, `{"$select":["name"]}`) {
		assert.ElementsMatch(t, []string{svc.IDField(), "name"}, r.Keys())
	}
}

func testOr(t *testing.T, svc *adapter.Service) {
	Seed(t, svc)
	got := find(t, svc, `{"$or":[{"name":"Alice"},{"age":35}]}`)
	assert.Equal(t, []string{"Alice", "Charlie"}, SortedNames(got))
}

func testIsNullComplement(t *testing.T, svc *adapter.Service) {
	Seed(t, svc)
	_, err := svc.Create(context.Background(), record.From("name", "Dave", "age", nil))
	require.NoError(t, err)

	null := SortedNames(find(t, svc, `{"age":{"$isNull":true}}`))
	notNull := SortedNames(find(t, svc, `{"age":{"$isNull":false}}`))
	assert.Equal(t, []string{"Dave"}, null)
	assert.Equal(t, []string{"Alice", "Bob", "Charlie"}, notNull)
	assert.Equal(t, null, SortedNames(find(t, svc, `{"age":null}`)))
}

func testNegationsKeepNull(t *testing.T, svc *adapter.Service) {
	Seed(t, svc)
	_, err := svc.Create(context.Background(), record.From("name", "Dave", "age", nil))
	require.NoError(t, err)

	want := []string{"Bob", "Charlie", "Dave"}
	assert.Equal(t, want, SortedNames(find(t, svc, `{"age":{"$ne":25}}`)))
	assert.Equal(t, want, SortedNames(find(t, svc, `{"age":{"$nin":[25]}}`)))
	assert.Equal(t, []string{"Alice", "Bob", "Charlie"}, SortedNames(find(t, svc, `{"age":{"$ne":null}}`)))
	assert.Empty(t, find(t, svc, `{"age":{"$in":[]}}`))
	assert.Len(t, find(t, svc, `{"age":{"$nin":[]}}`), 4)
	assert.Equal(t, []string{"Alice", "Bob"}, SortedNames(find(t, svc, `{"age":{"$lt":35}}`)))
}

func testLike(t *testing.T, svc *adapter.Service) {
	Seed(t, svc)
	assert.Equal(t, []string{"Alice", "Charlie"}, SortedNames(find(t, svc, `{"name":{"$like":"%li%"}}`)))
	assert.Empty(t, find(t, svc, `{"name":{"$like":"c%"}}`))
	assert.Equal(t, []string{"Charlie"}, SortedNames(find(t, svc, `{"name":{"$ilike":"c%"}}`)))
	assert.Equal(t, []string{"Alice", "Bob"}, SortedNames(find(t, svc, `{"name":{"$notlike":"C%"}}`)))
}

func testBoolean(t *testing.T, svc *adapter.Service) {
	Seed(t, svc)
	assert.Equal(t, []string{"Alice", "Charlie"}, SortedNames(find(t, svc, `{"active":true}`)))
	assert.Equal(t, []string{"Bob"}, SortedNames(find(t, svc, `{"active":{"$ne":true}}`)))
}

func testPatchAndRemove(t *testing.T, svc *adapter.Service) {
	ctx := context.Background()
	created := Seed(t, svc)
	id := created[1].Value(svc.IDField())

	patched, err := svc.Patch(ctx, id, record.From(svc.IDField(), "ignored", "age", 31), nil)
	require.NoError(t, err)
	require.NotNil(t, patched)
	assert.True(t, record.Equal(id, patched.Value(svc.IDField())))
	assert.True(t, record.Equal(record.Int(31), patched.Value("age")))
	assert.Equal(t, "Bob", record.Format(patched.Value("name")))

	removed, err := svc.Remove(ctx, id, nil)
	require.NoError(t, err)
	require.NotNil(t, removed)
	assert.Equal(t, "Bob", record.Format(removed.Value("name")))

	got, err := svc.Get(ctx, id, nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	removed, err = svc.Remove(ctx, id, nil)
	require.NoError(t, err)
	assert.Nil(t, removed)
}

func testRemoveManyAndAll(t *testing.T, svc *adapter.Service) {
	ctx := context.Background()
	Seed(t, svc)

	removed, err := svc.RemoveMany(ctx, mustParse(t, `{"age":{"$gte":30}}`), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob", "Charlie"}, SortedNames(removed))
	assert.Equal(t, []string{"Alice"}, Names(find(t, svc, `{}`)))

	all, err := svc.RemoveAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
	assert.Empty(t, find(t, svc, `{}`))
}
