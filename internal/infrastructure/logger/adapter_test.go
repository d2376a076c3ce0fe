package logger

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"chat-bridge", "chat-bridge"},
		{"chat bridge/1", "chat_bridge_1"},
		{"///", "bridge"},
		{"", "bridge"},
		{strings.Repeat("a", 80), strings.Repeat("a", 60)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitize(tt.in), tt.in)
	}
}

func TestLoggerAdapter_WritesJSONFile(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLoggerAdapter(Config{Level: "debug", Dir: dir, Name: "chat bridge", JSON: true})
	require.NoError(t, err)

	l.WithFields(map[string]any{"exchange_id": "abc", "kind": "text"}).
		WithField("attempt", 2).
		Info("Exchange completed", "duration_ms", 42)
	l.Debug("Poll", "target", "query_bubble")
	require.NoError(t, l.Close())

	assert.Contains(t, l.Path(), "chat_bridge.log")

	f, err := os.Open(l.Path())
	require.NoError(t, err)
	defer f.Close()

	var entries []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		entries = append(entries, e)
	}
	require.Len(t, entries, 2)

	first := entries[0]
	assert.Equal(t, "info", first["level"])
	assert.Equal(t, "Exchange completed", first["message"])
	assert.Equal(t, "abc", first["exchange_id"])
	assert.Equal(t, "text", first["kind"])
	assert.EqualValues(t, 2, first["attempt"])
	assert.EqualValues(t, 42, first["duration_ms"])
	assert.Contains(t, first, "timestamp")

	assert.Equal(t, "debug", entries[1]["level"])
}

func TestLoggerAdapter_LevelFilters(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLoggerAdapter(Config{Level: "warn", Dir: dir, Name: "filter"})
	require.NoError(t, err)

	l.Info("dropped")
	l.Warn("kept")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}

func TestLoggerAdapter_BadLevel(t *testing.T) {
	_, err := NewLoggerAdapter(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.WithField("k", "v").Error("nothing")
	assert.NoError(t, l.Close())
	assert.Empty(t, l.Path())
}

func TestLoggerAdapter_CloseReleasesFile(t *testing.T) {
	l, err := NewLoggerAdapter(Config{Dir: t.TempDir(), Name: "close"})
	require.NoError(t, err)
	require.NotNil(t, l.file)

	child := l.WithField("exchange_id", "abc")
	child.Info("before close")
	require.NoError(t, child.Close())
	assert.NoError(t, l.file.Close(), "closing a child must leave the file open")

	l, err = NewLoggerAdapter(Config{Dir: t.TempDir(), Name: "close"})
	require.NoError(t, err)
	l.Info("entry")
	require.NoError(t, l.Close())
	assert.ErrorIs(t, l.file.Close(), os.ErrClosed)
	assert.NoError(t, l.Close(), "a second Close is a no-op")
}
