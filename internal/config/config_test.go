package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/wings/pkg/adapter"
	"github.com/redbco/wings/pkg/logger"
)

func TestLoadWritesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, c.Path())
	assert.FileExists(t, path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	p, err := c.Profile("")
	require.NoError(t, err)
	assert.Equal(t, "memory://", p.URL)
	assert.Equal(t, []string{DefaultProfileName}, c.ProfileNames())
	assert.Equal(t, "127.0.0.1:7070", c.Server().GRPCAddress)

	level, err := c.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, logger.LevelInfo, level)
}

func TestLoadExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `default_profile: people
log_level: debug
server:
  grpc_address: 0.0.0.0:7000
profiles:
  people:
    url: sqlite:///tmp/people.db
    table: people
    strict: false
    paginate:
      default: 10
      max: 50
  orders:
    url: postgres://localhost/shop
    table: orders
    id: order_id
    concurrent_count: true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "people"}, c.ProfileNames())
	assert.Equal(t, "people", c.DefaultProfile())

	people, err := c.Profile("")
	require.NoError(t, err)
	assert.False(t, people.IsStrict())
	opts := people.Options(nil)
	assert.Equal(t, adapter.PaginateOptions{Default: 10, Max: 50}, opts.Paginate)
	assert.False(t, opts.Strict)

	orders, err := c.Profile("orders")
	require.NoError(t, err)
	assert.True(t, orders.IsStrict())
	bc := orders.BackendConfig(nil)
	assert.Equal(t, adapter.BackendConfig{Table: "orders", ID: "order_id", Strict: true}, bc)
	assert.True(t, orders.Options(nil).ConcurrentCount)

	level, err := c.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, logger.LevelDebug, level)

	_, err = c.Profile("missing")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profiles: [1, 2"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestProfileLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	c, err := Load(path)
	require.NoError(t, err)

	err = c.SetProfile("broken", Profile{URL: "memory://"})
	assert.ErrorIs(t, err, adapter.ErrInvalidConfiguration)
	err = c.SetProfile("", Profile{URL: "memory://", Table: "t"})
	assert.ErrorIs(t, err, adapter.ErrInvalidConfiguration)

	require.NoError(t, c.SetProfile("extra", Profile{URL: "sqlite://:memory:", Table: "things"}))
	require.NoError(t, c.SetDefaultProfile("extra"))
	require.NoError(t, c.Save())

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultProfileName, "extra"}, reloaded.ProfileNames())
	assert.Equal(t, "extra", reloaded.DefaultProfile())

	require.NoError(t, reloaded.DeleteProfile("extra"))
	assert.Empty(t, reloaded.DefaultProfile())
	assert.ErrorIs(t, reloaded.DeleteProfile("extra"), ErrProfileNotFound)
	assert.ErrorIs(t, reloaded.SetDefaultProfile("extra"), ErrProfileNotFound)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		wantErr bool
	}{
		{"valid", Profile{URL: "memory://", Table: "t"}, false},
		{"missing url", Profile{Table: "t"}, true},
		{"missing table", Profile{URL: "memory://"}, true},
		{"negative page", Profile{URL: "memory://", Table: "t", Paginate: Paginate{Max: -1}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
