package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_File(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "twodo.log")

	l, closer, err := New("debug", file, nil)
	require.NoError(t, err)
	l.Info().Str("k", "v").Msg("hello")
	closer()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"hello"`)
	assert.Contains(t, string(data), `"k":"v"`)
}

func TestNew_BadLevel(t *testing.T) {
	_, _, err := New("loud", "", nil)
	assert.Error(t, err)
}

func TestCronLogger(t *testing.T) {
	var buf bytes.Buffer
	cl := CronLogger{L: zerolog.New(&buf).Level(zerolog.DebugLevel)}

	cl.Info("schedule", "entry", 1, "now", "x")
	cl.Error(errors.New("boom"), "panic", "entry")

	out := buf.String()
	assert.Contains(t, out, `"entry":1`)
	assert.Contains(t, out, `"error":"boom"`)
}

func TestNew_ConsoleWriter(t *testing.T) {
	var buf bytes.Buffer
	l, closer, err := New("warn", "", &buf)
	require.NoError(t, err)
	defer closer()

	l.Info().Msg("quiet")
	l.Warn().Msg("loud")

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}
