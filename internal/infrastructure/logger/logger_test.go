package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/dialogue-bot/internal/config"
)

func TestNew_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&config.Config{ServiceName: "dialogue-bot", Environment: "test", LogLevel: "debug", LogFormat: "json"}, &buf)

	log.Info().Str("user_id", "42").Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "dialogue-bot", line["service"])
	assert.Equal(t, "test", line["environment"])
	assert.Equal(t, "42", line["user_id"])
	assert.Equal(t, "hello", line["message"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, parseLevel(""))
	assert.Equal(t, zerolog.WarnLevel, parseLevel("WARN"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("loud"))
}
