package memory

import (
	"sync/atomic"
	"testing"
	"time"

	"studyhub-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepository_SaveGetDelete(t *testing.T) {
	repo := NewSessionRepository(time.Minute)
	var evicted atomic.Int32
	repo.OnEvicted(func(*store.Session) { evicted.Add(1) })

	repo.Save(store.NewSession("s1", "u1"))

	got, ok := repo.Get("s1")
	require.True(t, ok)
	assert.Equal(t, "u1", got.UserID())
	assert.Equal(t, 1, repo.Count())
	assert.Len(t, repo.All(), 1)

	repo.Delete("s1")
	_, ok = repo.Get("s1")
	assert.False(t, ok)
	assert.Equal(t, int32(1), evicted.Load())
}

func TestSessionRepository_Expiry(t *testing.T) {
	repo := NewSessionRepository(50 * time.Millisecond)
	repo.Save(store.NewSession("s1", ""))

	time.Sleep(80 * time.Millisecond)

	_, ok := repo.Get("s1")
	assert.False(t, ok)
}
