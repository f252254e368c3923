package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/wings/pkg/dbcapabilities"
	"github.com/redbco/wings/pkg/query"
	"github.com/redbco/wings/pkg/record"
)

func compiler(t *testing.T, id dbcapabilities.DatabaseID) *Compiler {
	t.Helper()
	c, err := New(id, false)
	require.NoError(t, err)
	return c
}

func TestWhereOperators(t *testing.T) {
	c := compiler(t, dbcapabilities.PostgreSQL)

	tests := []struct {
		name     string
		filter   *query.Filter
		wantSQL  string
		wantArgs []any
	}{
		{"equality", query.Where(query.Eq("name", "Alice")), `"name" = $1`, []any{"Alice"}},
		{"null equality", query.Where(query.Eq("age", nil)), `"age" IS NULL`, nil},
		{"ne null", query.Where(query.Cond("age", query.Ne(nil))), `"age" IS NOT NULL`, nil},
		{"ne value", query.Where(query.Cond("age", query.Ne(3))), `"age" IS DISTINCT FROM $1`, []any{int64(3)}},
		{"empty in", query.Where(query.Cond("id", query.In())), `1 = 0`, nil},
		{"empty nin", query.Where(query.Cond("id", query.Nin())), `1 = 1`, nil},
		{"in", query.Where(query.Cond("id", query.In(1, 2, 3))), `"id" IN ($1, $2, $3)`, []any{int64(1), int64(2), int64(3)}},
		{"in with null", query.Where(query.Cond("id", query.In(1, nil))), `("id" IN ($1) OR "id" IS NULL)`, []any{int64(1)}},
		{"nin", query.Where(query.Cond("id", query.Nin("a"))), `("id" NOT IN ($1) OR "id" IS NULL)`, []any{"a"}},
		{"isNull true", query.Where(query.Cond("age", query.IsNull(true))), `"age" IS NULL`, nil},
		{"isNull false", query.Where(query.Cond("age", query.IsNull(false))), `"age" IS NOT NULL`, nil},
		{"range", query.Where(query.Cond("age", query.Gte(18), query.Lt(65))), `"age" >= $1 AND "age" < $2`, []any{int64(18), int64(65)}},
		{"like", query.Where(query.Cond("name", query.Like("A%"))), `"name" LIKE $1`, []any{"A%"}},
		{"native ilike", query.Where(query.Cond("name", query.ILike("a%"))), `"name" ILIKE $1`, []any{"a%"}},
		{
			"or",
			query.Where(query.AnyOf(query.Where(query.Eq("name", "Alice")), query.Where(query.Eq("age", 35)))),
			`("name" = $1 OR "age" = $2)`,
			[]any{"Alice", int64(35)},
		},
		{
			"empty child",
			query.Where(query.AnyOf(query.Where(), query.Where(query.Eq("a", 1)))),
			`(1 = 1 OR "a" = $1)`,
			[]any{int64(1)},
		},
		{"empty filter", query.Where(), ``, nil},
		{"nil filter", nil, ``, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := c.Where(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestBooleanCoercion(t *testing.T) {
	f := query.Where(query.Eq("active", true), query.Eq("deleted", false))

	_, args, err := compiler(t, dbcapabilities.SQLite).Where(f)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(0)}, args)

	_, args, err = compiler(t, dbcapabilities.PostgreSQL).Where(f)
	require.NoError(t, err)
	assert.Equal(t, []any{true, false}, args)
}

func TestILikeFallback(t *testing.T) {
	sql, _, err := compiler(t, dbcapabilities.MySQL).Where(query.Where(query.Cond("name", query.ILike("%BOB%"))))
	require.NoError(t, err)
	assert.Equal(t, "LOWER(`name`) LIKE LOWER(?)", sql)
}

func TestValuesAreNeverInterpolated(t *testing.T) {
	evil := "x'; DROP TABLE users; --"
	for _, id := range []dbcapabilities.DatabaseID{dbcapabilities.SQLite, dbcapabilities.PostgreSQL, dbcapabilities.MySQL} {
		sql, args, err := compiler(t, id).Where(query.Where(query.Eq("name", evil)))
		require.NoError(t, err)
		assert.NotContains(t, sql, "DROP")
		assert.Equal(t, []any{evil}, args)
	}
}

func TestUnknownOperatorPolicy(t *testing.T) {
	f := query.Where(
		&query.Field{Name: "name", Clauses: []query.Clause{
			{Op: query.Operator("$regex"), Value: record.String("^A")},
			{Op: query.OpEq, Value: record.String("Alice")},
		}},
		&query.Unrecognized{Key: "$populate"},
	)

	lenient := compiler(t, dbcapabilities.SQLite)
	sql, args, err := lenient.Where(f)
	require.NoError(t, err)
	assert.Equal(t, `"name" = ?`, sql)
	assert.Equal(t, []any{"Alice"}, args)

	strict := &Compiler{Dialect: lenient.Dialect, Strict: true}
	_, _, err = strict.Where(f)
	assert.ErrorIs(t, err, query.ErrUnknownOperator)
}

func TestSelectPagination(t *testing.T) {
	p := query.New(nil).WithSort("name", query.Ascending).WithSkip(1).WithLimit(2)

	stmt, err := compiler(t, dbcapabilities.SQLite).Select("people", p, "id")
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "people" ORDER BY "name" ASC LIMIT 2 OFFSET 1`, stmt.SQL)
	assert.Empty(t, stmt.Args)

	stmt, err = compiler(t, dbcapabilities.PostgreSQL).Select("people", query.New(nil).WithSkip(3), "id")
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "people" OFFSET 3`, stmt.SQL)

	stmt, err = compiler(t, dbcapabilities.MySQL).Select("people", query.New(nil).WithLimit(0), "id")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM `people` LIMIT 0", stmt.SQL)
}

func TestPlaceholderNumberingAcrossClauses(t *testing.T) {
	c := compiler(t, dbcapabilities.PostgreSQL)
	stmt, err := c.Update("people", record.From("name", "Bo", "age", 4), query.Where(query.Eq("id", 9)), true)
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "people" SET "name" = $1, "age" = $2 WHERE "id" = $3 RETURNING *`, stmt.SQL)
	assert.Equal(t, []any{"Bo", int64(4), int64(9)}, stmt.Args)

	_, err = c.Update("people", record.New(), nil, true)
	assert.ErrorIs(t, err, query.ErrInvalid)
}

func TestInsertAndCount(t *testing.T) {
	my := compiler(t, dbcapabilities.MySQL)
	stmt := my.Insert("people", record.From("name", "Al", "age", nil), true)
	assert.Equal(t, "INSERT INTO `people` (`name`, `age`) VALUES (?, ?)", stmt.SQL)
	assert.Equal(t, []any{"Al", nil}, stmt.Args)

	assert.Equal(t, "INSERT INTO `people` () VALUES ()", my.Insert("people", record.New(), false).SQL)
	assert.Equal(t, `INSERT INTO "people" DEFAULT VALUES RETURNING *`,
		compiler(t, dbcapabilities.SQLite).Insert("people", nil, true).SQL)

	count, err := my.Count("people", query.Where(query.Eq("age", 3)))
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM `people` WHERE `age` = ?", count.SQL)

	assert.Equal(t, "DELETE FROM `people`", my.Truncate("people").SQL)
}
