package memory

import (
	"time"

	"studyhub-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps open editor sessions. Sessions idle for longer
// than the TTL are evicted and their unsaved state is lost.
type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository(ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	cleanup := ttl / 6
	if cleanup < time.Second {
		cleanup = time.Second
	}
	return &SessionRepository{
		cache: cache.New(ttl, cleanup),
	}
}

// OnEvicted registers fn for sessions removed by expiry or Delete.
func (r *SessionRepository) OnEvicted(fn func(session *store.Session)) {
	r.cache.OnEvicted(func(_ string, v interface{}) {
		if s, ok := v.(*store.Session); ok {
			fn(s)
		}
	})
}

func (r *SessionRepository) Save(session *store.Session) {
	r.cache.Set(session.ID, session, cache.DefaultExpiration)
}

// Get returns the session and restarts its idle timer.
func (r *SessionRepository) Get(sessionID string) (*store.Session, bool) {
	x, found := r.cache.Get(sessionID)
	if !found {
		return nil, false
	}
	s := x.(*store.Session)
	r.cache.Set(sessionID, s, cache.DefaultExpiration)
	return s, true
}

func (r *SessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}

// All returns the live sessions in no particular order.
func (r *SessionRepository) All() []*store.Session {
	items := r.cache.Items()
	out := make([]*store.Session, 0, len(items))
	for _, it := range items {
		if s, ok := it.Object.(*store.Session); ok {
			out = append(out, s)
		}
	}
	return out
}
