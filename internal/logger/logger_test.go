package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linenote/internal/config"
)

func TestNewJSONFormat(t *testing.T) {
	t.Setenv("LINENOTE_LOG_FORMAT", "")
	t.Setenv("LINENOTE_LOG_LEVEL", "")

	var buf bytes.Buffer
	log, err := newWithWriter(config.GeneralConfig{LogFormat: "json", LogLevel: "debug"}, &buf)
	require.NoError(t, err)

	log.Debug("hello", "kind", "audio")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "audio", entry["kind"])
}

func TestLevelFiltersBelowThreshold(t *testing.T) {
	t.Setenv("LINENOTE_LOG_FORMAT", "")
	t.Setenv("LINENOTE_LOG_LEVEL", "")

	var buf bytes.Buffer
	log, err := newWithWriter(config.GeneralConfig{LogFormat: "json", LogLevel: "warn"}, &buf)
	require.NoError(t, err)

	log.Info("dropped")
	assert.Empty(t, buf.String())
}

func TestEnvOverridesFormat(t *testing.T) {
	t.Setenv("LINENOTE_LOG_FORMAT", "bogus")

	_, err := newWithWriter(config.GeneralConfig{LogFormat: "json"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestTextFormat(t *testing.T) {
	t.Setenv("LINENOTE_LOG_FORMAT", "")
	t.Setenv("LINENOTE_LOG_LEVEL", "")

	var buf bytes.Buffer
	log, err := newWithWriter(config.GeneralConfig{}, &buf)
	require.NoError(t, err)

	log.Info("webhook received", "events", 2)
	assert.Contains(t, buf.String(), "webhook received")
}

func TestParseLevelRejectsUnknown(t *testing.T) {
	t.Setenv("LINENOTE_LOG_LEVEL", "")
	_, err := parseLevel("chatty")
	assert.Error(t, err)
}
