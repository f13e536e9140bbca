package events_test

import (
	"testing"
	"time"

	"studyhub-be/pkg/events"

	"github.com/stretchr/testify/assert"
)

func TestCanvasSavedPayload(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	e := events.NewCanvasSaved("u-1", 3, at)

	assert.Equal(t, events.CanvasSaved, e.EventType())
	assert.Equal(t, "u-1", events.UserID(e))
	assert.Equal(t, 3, e.Payload()["page_count"])
	assert.Equal(t, "2026-03-01T10:00:00Z", e.Payload()["updated_at"])
	assert.False(t, e.Timestamp().IsZero())
}

func TestUserIDMissing(t *testing.T) {
	assert.Equal(t, "", events.UserID(nil))
	e := events.NewCanvasImported("s-1", []int64{4}, 0)
	assert.Equal(t, "", events.UserID(e))
	assert.Equal(t, events.CanvasImported, e.EventType())
}
