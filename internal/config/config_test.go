package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("SESSION_TTL", "not-a-duration")

	cfg := Load()

	assert.Equal(t, "", cfg.Storage.Driver)
	assert.Equal(t, time.Hour, cfg.Canvas.SessionTTL)
	assert.Equal(t, 1000, cfg.Canvas.ImportMaxWidth)
	assert.Equal(t, 40_000_000, cfg.Canvas.MaxPixels)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "SQLite")
	t.Setenv("SESSION_TTL", "90s")
	t.Setenv("IMPORT_MAX_WIDTH", "640")
	t.Setenv("RASTER_MAX_PIXELS", "1000000")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("GO_ENV", "production")

	cfg := Load()

	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, 90*time.Second, cfg.Canvas.SessionTTL)
	assert.Equal(t, 640, cfg.Canvas.ImportMaxWidth)
	assert.Equal(t, 1_000_000, cfg.Canvas.MaxPixels)
	assert.True(t, cfg.App.OtelEnabled)
	assert.True(t, cfg.IsProduction())
}
