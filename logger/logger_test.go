package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) (*ZeroLogger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	return FromZerolog(zerolog.New(buf)), buf
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNewDefaultsToInfoOnBadLevel(t *testing.T) {
	l := New("not-a-level", false)
	assert.Equal(t, zerolog.InfoLevel, l.zlog.GetLevel())
}

func TestEventFields(t *testing.T) {
	l, buf := capture(t)

	l.Info().
		Str("vendor", "postgresql").
		Int("attempt", 2).
		Int64("rows", 10).
		Bool("read_only", true).
		Dur("elapsed", 1500*time.Millisecond).
		Err(errors.New("boom")).
		Msg("statement done")

	entry := decode(t, buf)
	assert.Equal(t, "postgresql", entry["vendor"])
	assert.Equal(t, float64(2), entry["attempt"])
	assert.Equal(t, float64(10), entry["rows"])
	assert.Equal(t, true, entry["read_only"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "statement done", entry["message"])
}

func TestWithFields(t *testing.T) {
	l, buf := capture(t)

	l.WithFields(map[string]any{"tx_id": "abc"}).Warn().Msg("slow transaction")

	entry := decode(t, buf)
	assert.Equal(t, "abc", entry["tx_id"])
	assert.Equal(t, "warn", entry["level"])
}

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	l := FromZerolog(zerolog.New(buf).Level(zerolog.ErrorLevel))

	l.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())

	l.Error().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
}
