package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/wings/internal/database/dbtest"
	"github.com/redbco/wings/internal/database/sqlite"
	"github.com/redbco/wings/pkg/adapter"
	"github.com/redbco/wings/pkg/record"
)

func run(t *testing.T, configFile string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--config", configFile}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// setup creates a SQLite table and a config whose default profile serves it.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "people.db")

	db, err := sqlite.OpenDB(context.Background(), dbPath, nil)
	require.NoError(t, err)
	_, err = db.Exec(fmt.Sprintf(dbtest.Schema, "people", "id INTEGER PRIMARY KEY"))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	configFile := filepath.Join(dir, "config.yaml")
	_, err = run(t, configFile, "profiles", "create", "people",
		"--url", "sqlite://"+dbPath, "--table", "people", "--default")
	require.NoError(t, err)
	return configFile
}

func decodeOne(t *testing.T, out string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	return m
}

func decodeList(t *testing.T, out string) []map[string]any {
	t.Helper()
	var l []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &l))
	return l
}

func TestRecordCommands(t *testing.T) {
	cfg := setup(t)

	out, err := run(t, cfg, "create", `{"name":"Alice","age":25}`)
	require.NoError(t, err)
	alice := decodeOne(t, out)
	assert.Equal(t, float64(1), alice["id"])
	assert.Equal(t, "Alice", alice["name"])

	out, err = run(t, cfg, "create", `[{"name":"Bob","age":30},{"name":"Charlie","age":35}]`)
	require.NoError(t, err)
	assert.Len(t, decodeList(t, out), 2)

	out, err = run(t, cfg, "find", `{"age":{"$gte":30},"$sort":{"name":-1}}`)
	require.NoError(t, err)
	found := decodeList(t, out)
	require.Len(t, found, 2)
	assert.Equal(t, "Charlie", found[0]["name"])

	out, err = run(t, cfg, "find", "--paginate", `{"$limit":1,"$skip":1,"$sort":{"name":1}}`)
	require.NoError(t, err)
	page := decodeOne(t, out)
	assert.Equal(t, float64(3), page["total"])
	assert.Len(t, page["data"], 1)

	out, err = run(t, cfg, "get", "2")
	require.NoError(t, err)
	assert.Equal(t, "Bob", decodeOne(t, out)["name"])

	out, err = run(t, cfg, "get", "42")
	require.NoError(t, err)
	assert.Equal(t, "null", strings.TrimSpace(out))

	out, err = run(t, cfg, "patch", "1", `{"age":26}`)
	require.NoError(t, err)
	assert.Equal(t, float64(26), decodeOne(t, out)["age"])

	out, err = run(t, cfg, "patch", "--many", "--query", `{"age":{"$gt":28}}`, `{"active":true}`)
	require.NoError(t, err)
	assert.Len(t, decodeList(t, out), 2)

	_, err = run(t, cfg, "patch", "--many", `{"active":false}`)
	assert.Equal(t, adapter.KindBadRequest, adapter.KindOf(err))

	_, err = run(t, cfg, "patch", "null", `{"age":1}`)
	assert.Equal(t, adapter.KindBadRequest, adapter.KindOf(err))

	out, err = run(t, cfg, "remove", "3")
	require.NoError(t, err)
	assert.Equal(t, "Charlie", decodeOne(t, out)["name"])

	out, err = run(t, cfg, "remove-all")
	require.NoError(t, err)
	assert.Empty(t, decodeList(t, out))

	out, err = run(t, cfg, "find")
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(out))
}

func TestLegacyCommands(t *testing.T) {
	cfg := setup(t)

	_, err := run(t, cfg, "create", `[{"name":"Alice","age":25},{"name":"Bob","age":30}]`)
	require.NoError(t, err)

	out, err := run(t, cfg, "--legacy", "find")
	require.NoError(t, err)
	assert.Equal(t, float64(2), decodeOne(t, out)["total"])

	_, err = run(t, cfg, "--legacy", "get", "42")
	assert.Equal(t, adapter.KindNotFound, adapter.KindOf(err))

	out, err = run(t, cfg, "--legacy", "patch", "null", `{"active":true}`)
	require.NoError(t, err)
	assert.Len(t, decodeList(t, out), 2)

	out, err = run(t, cfg, "--legacy", "remove", "--query", `{"name":"Bob"}`, "null")
	require.NoError(t, err)
	removed := decodeList(t, out)
	require.Len(t, removed, 1)
	assert.Equal(t, "Bob", removed[0]["name"])
}

func TestProfileCommands(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.yaml")

	out, err := run(t, cfg, "profiles", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "default")
	assert.Contains(t, out, "memory://")

	_, err = run(t, cfg, "profiles", "create", "orders", "--url", "postgres://localhost/shop",
		"--table", "orders", "--id", "order_id", "--strict=false")
	require.NoError(t, err)

	out, err = run(t, cfg, "profiles", "show", "orders")
	require.NoError(t, err)
	assert.Contains(t, out, "table: orders")
	assert.Contains(t, out, "id: order_id")
	assert.Contains(t, out, "strict: false")

	_, err = run(t, cfg, "profiles", "create", "broken", "--table", "t")
	assert.ErrorIs(t, err, adapter.ErrInvalidConfiguration)

	_, err = run(t, cfg, "profiles", "use", "orders")
	require.NoError(t, err)
	out, err = run(t, cfg, "profiles", "list")
	require.NoError(t, err)
	assert.Regexp(t, `orders\s+postgres://localhost/shop\s+orders\s+\*`, out)

	_, err = run(t, cfg, "profiles", "delete", "orders")
	require.NoError(t, err)
	_, err = run(t, cfg, "profiles", "show", "orders")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := run(t, filepath.Join(t.TempDir(), "config.yaml"), "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "wingsctl dev")
}

func TestParseID(t *testing.T) {
	tests := []struct {
		arg  string
		want record.Value
	}{
		{"1", record.Int(1)},
		{"0", record.Int(0)},
		{"null", record.Null{}},
		{"abc", record.String("abc")},
		{`"12"`, record.String("12")},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := parseID(tt.arg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseID(`"open`)
	assert.Error(t, err)
}

func TestUnknownProfile(t *testing.T) {
	cfg := setup(t)
	_, err := run(t, cfg, "--profile", "nope", "find")
	assert.Error(t, err)
}
