package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"studyhub-be/internal/entity"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "note_canvas:"

// SnapshotCache holds recently read or written canvas states keyed by user.
// A miss returns nil, nil.
type SnapshotCache interface {
	Get(ctx context.Context, userID string) (*entity.NoteCanvasState, error)
	Set(ctx context.Context, state *entity.NoteCanvasState) error
	Invalidate(ctx context.Context, userID string) error
}

type cachedState struct {
	Id        string          `json:"id"`
	UserId    string          `json:"userId"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func key(userID string) string {
	return keyPrefix + userID
}

type redisSnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSnapshotCache(client *redis.Client, ttl time.Duration) SnapshotCache {
	return &redisSnapshotCache{client: client, ttl: ttl}
}

func (c *redisSnapshotCache) Get(ctx context.Context, userID string) (*entity.NoteCanvasState, error) {
	raw, err := c.client.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var cs cachedState
	if err := json.Unmarshal(raw, &cs); err != nil {
		// A corrupt entry is treated as a miss and dropped.
		_ = c.client.Del(ctx, key(userID)).Err()
		return nil, nil
	}
	return &entity.NoteCanvasState{
		Id:        cs.Id,
		UserId:    cs.UserId,
		Data:      cs.Data,
		CreatedAt: cs.CreatedAt,
		UpdatedAt: cs.UpdatedAt,
	}, nil
}

func (c *redisSnapshotCache) Set(ctx context.Context, state *entity.NoteCanvasState) error {
	raw, err := json.Marshal(cachedState{
		Id:        state.Id,
		UserId:    state.UserId,
		Data:      state.Data,
		CreatedAt: state.CreatedAt,
		UpdatedAt: state.UpdatedAt,
	})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key(state.UserId), raw, c.ttl).Err()
}

func (c *redisSnapshotCache) Invalidate(ctx context.Context, userID string) error {
	return c.client.Del(ctx, key(userID)).Err()
}

// memorySnapshotCache is used when no redis is configured.
type memorySnapshotCache struct {
	cache *gocache.Cache
}

func NewMemorySnapshotCache(ttl time.Duration) SnapshotCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &memorySnapshotCache{cache: gocache.New(ttl, 2*ttl)}
}

func (c *memorySnapshotCache) Get(_ context.Context, userID string) (*entity.NoteCanvasState, error) {
	v, ok := c.cache.Get(key(userID))
	if !ok {
		return nil, nil
	}
	s := *v.(*entity.NoteCanvasState)
	return &s, nil
}

func (c *memorySnapshotCache) Set(_ context.Context, state *entity.NoteCanvasState) error {
	s := *state
	c.cache.Set(key(state.UserId), &s, gocache.DefaultExpiration)
	return nil
}

func (c *memorySnapshotCache) Invalidate(_ context.Context, userID string) error {
	c.cache.Delete(key(userID))
	return nil
}
