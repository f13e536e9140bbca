package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_Fields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core))

	l.Info("CanvasSession", "Session opened", map[string]interface{}{"session_id": "s1"})
	l.Error("CanvasSession", "Save failed", map[string]interface{}{"error": errors.New("boom")})
	l.Debug("CanvasSession", "no details", nil)

	entries := logs.All()
	require.Len(t, entries, 3)

	first := entries[0].ContextMap()
	assert.Equal(t, "CanvasSession", first["module"])
	assert.Equal(t, map[string]interface{}{"session_id": "s1"}, first["details"])

	second := entries[1].ContextMap()
	assert.Equal(t, "boom", second["error_ref"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)

	assert.Equal(t, map[string]interface{}{}, entries[2].ContextMap()["details"])
}
