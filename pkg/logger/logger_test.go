package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New("wings-test", "1.0.0")
	l.SetOutput(&buf)

	l.Debug("hidden %d", 1)
	l.Info("shown %d", 2)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown 2")

	l.SetLevel(LevelDebug)
	l.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
	assert.True(t, l.Enabled(LevelDebug))
}

func TestWithFieldsAndSubscribers(t *testing.T) {
	var buf bytes.Buffer
	l := New("wings-test", "")
	l.SetOutput(&buf)
	ch := l.Subscribe()

	l.WithFields(map[string]string{"table": "people", "op": "find"}).Warn("slow query")

	assert.Contains(t, buf.String(), "slow query op=find table=people")
	entry := <-ch
	assert.Equal(t, LevelWarn, entry.Level)
	assert.Equal(t, "people", entry.Fields["table"])

	l.DisableConsoleOutput()
	buf.Reset()
	l.Error("quiet")
	assert.Empty(t, buf.String())
	assert.Equal(t, "quiet", (<-ch).Message)
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, LevelDebug, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, LevelInfo, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
	assert.Equal(t, "WARN", LevelWarn.String())
}
