package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestZerolog_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := Wrap(zerolog.New(&buf))

	l.Info("node attached",
		String("class", "demo.counter"),
		Int("children", 2),
		Bool("restored", true),
		Duration("took", 1500*time.Millisecond),
		Err(errors.New("boom")),
	)

	got := entries(t, &buf)
	require.Len(t, got, 1)
	assert.Equal(t, "info", got[0]["level"])
	assert.Equal(t, "node attached", got[0]["message"])
	assert.Equal(t, "demo.counter", got[0]["class"])
	assert.Equal(t, float64(2), got[0]["children"])
	assert.Equal(t, true, got[0]["restored"])
	assert.Equal(t, "boom", got[0]["error"])
	assert.Contains(t, got[0], "took")
}

func TestZerolog_WithAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := Wrap(zerolog.New(&buf).Level(zerolog.InfoLevel))
	scoped := l.With(String("node", "c1"))

	scoped.Debug("hidden")
	scoped.Warn("shown", Int("step", 3))
	l.Error("plain")

	got := entries(t, &buf)
	require.Len(t, got, 2)
	assert.Equal(t, "c1", got[0]["node"])
	assert.Equal(t, float64(3), got[0]["step"])
	assert.Equal(t, "warn", got[0]["level"])
	assert.NotContains(t, got[1], "node")
	assert.Same(t, l, l.With())
}

func TestOrNoop(t *testing.T) {
	assert.Equal(t, NoopLogger{}, OrNoop(nil))
	l := Wrap(zerolog.Nop())
	assert.Same(t, l, OrNoop(l))
	NoopLogger{}.With(String("k", "v")).Info("dropped")
}
