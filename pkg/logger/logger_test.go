package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(Options{Output: &buf, Level: level, Format: "json"}), &buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
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

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		" INFO ":  LevelInfo,
		"warning": LevelWarn,
		"Error":   LevelError,
		"fatal":   LevelFatal,
		"verbose": LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
	assert.Equal(t, "WARN", LevelWarn.String())
}

func TestLogger_LevelFilteringAndFields(t *testing.T) {
	log, buf := newBufferLogger(LevelInfo)

	log.Debug("hidden")
	log.With(Component("eventbus")).Warn("handler failed",
		ApplicationID(12),
		Reason("deadline_passed"),
		Latency(1500*time.Millisecond),
		Err(errors.New("boom")),
	)

	entries := lines(t, buf)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "handler failed", e["message"])
	assert.Equal(t, "WARN", e["level"])
	assert.Equal(t, "eventbus", e["component"])
	assert.Equal(t, float64(12), e["application_id"])
	assert.Equal(t, "deadline_passed", e["reason"])
	assert.Equal(t, "boom", e["error"])
	assert.Contains(t, e, "timestamp")
	assert.Contains(t, e, "latency")
}

func TestLogger_NilErrorIsSkipped(t *testing.T) {
	log, buf := newBufferLogger(LevelDebug)
	log.Info("ok", Err(nil))

	entries := lines(t, buf)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0], "error")
}

func TestContextPropagation(t *testing.T) {
	log, buf := newBufferLogger(LevelInfo)
	ctx := WithContext(context.Background(), log.WithRequestID("req-7"))

	FromContext(ctx).Info("scoped")

	entries := lines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "req-7", entries[0][RequestIDKey])

	assert.NotNil(t, FromContext(context.Background()))
}
