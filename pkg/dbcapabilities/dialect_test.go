package dbcapabilities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDialectQuoting(t *testing.T) {
	tests := []struct {
		id   DatabaseID
		in   string
		want string
	}{
		{SQLite, "name", `"name"`},
		{PostgreSQL, `we"ird`, `"we""ird"`},
		{PostgreSQL, "app.users", `"app"."users"`},
		{MySQL, "name", "`name`"},
		{MySQL, "a`b", "`a``b`"},
	}
	for _, tt := range tests {
		t.Run(string(tt.id)+"/"+tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, MustGetDialect(tt.id).QuoteIdentifier(tt.in))
		})
	}
}

func TestDialectPlaceholdersAndBooleans(t *testing.T) {
	pg := MustGetDialect(PostgreSQL)
	my := MustGetDialect(MySQL)
	lite := MustGetDialect(SQLite)

	assert.Equal(t, "$3", pg.Bind(3))
	assert.Equal(t, "?", my.Bind(3))
	assert.Equal(t, true, pg.BoolValue(true))
	assert.Equal(t, int64(1), lite.BoolValue(true))
	assert.Equal(t, int64(0), my.BoolValue(false))

	assert.Equal(t, `"a" IS DISTINCT FROM $1`, pg.NotEqual(`"a"`, "$1"))
	assert.Equal(t, "NOT (`a` <=> ?)", my.NotEqual("`a`", "?"))
	assert.Equal(t, `"a" IS NOT ?`, lite.NotEqual(`"a"`, "?"))
}

func TestDialectCapabilities(t *testing.T) {
	assert.True(t, MustGetDialect(PostgreSQL).SupportsReturning)
	assert.False(t, MustGetDialect(MySQL).SupportsReturning)
	assert.Equal(t, IDFromLastInsert, MustGetDialect(MySQL).InsertID)
	assert.Empty(t, MustGetDialect(PostgreSQL).NoLimit)
	assert.Equal(t, "-1", MustGetDialect(SQLite).NoLimit)
	assert.True(t, MustGetDialect(PostgreSQL).NullsLastAscending)
	assert.False(t, MustGetDialect(SQLite).NullsLastAscending)
	assert.False(t, MustGetDialect(MySQL).NullsLastAscending)

	_, ok := GetDialect(MongoDB)
	assert.False(t, ok)
	assert.Panics(t, func() { MustGetDialect(Memory) })
}

func TestParseID(t *testing.T) {
	for name, want := range map[string]DatabaseID{
		"postgresql": PostgreSQL,
		" PG ":       PostgreSQL,
		"sqlite3":    SQLite,
		"MariaDB":    MySQL,
		"mongo":      MongoDB,
		"memory":     Memory,
	} {
		got, ok := ParseID(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
	_, ok := ParseID("oracle")
	assert.False(t, ok)

	assert.Equal(t, []DatabaseID{Memory, MongoDB, MySQL, PostgreSQL, SQLite}, IDs())
	assert.True(t, IsSQL(MySQL))
	assert.False(t, IsSQL(MongoDB))
	assert.True(t, SupportsParadigm(MongoDB, ParadigmDocument))
}
