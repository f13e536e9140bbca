package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"studyhub-be/internal/dto"
	"studyhub-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

const (
	clusterChannel = "canvas_cluster_events"
	flushInterval  = 50 * time.Millisecond
)

// StateFunc renders the current state message of a session.
type StateFunc func(sessionID string) ([]byte, error)

// Hub fans session state out to the editor connections of each session.
// State pushes are coalesced: a session marked dirty several times between
// two flushes is rendered once.
type Hub struct {
	// sessionID -> connections (several tabs may share a session)
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client
	// closed when Run returns
	done chan struct{}

	mu sync.RWMutex

	dirtyMu sync.Mutex
	dirty   map[string]struct{}

	render StateFunc

	// Redis connection for cross-instance save notices
	rdb      *redis.Client
	instance string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, instance string, render StateFunc, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[string][]*Client),
		dirty:      make(map[string]struct{}),
		render:     render,
		rdb:        rdb,
		instance:   instance,
		logger:     log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{
				"session_id": client.SessionID,
				"user_id":    client.UserID,
			})
			h.MarkDirty(client.SessionID)

		case client := <-h.unregister:
			h.remove(client)

		case <-ticker.C:
			h.flush()
		}
	}
}

// Register adds a connection. It reports false once Run has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a connection and closes its Send channel. After Run has
// stopped it returns without waiting.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.clients[client.SessionID]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.clients[client.SessionID] = append(clients[:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.SessionID]) == 0 {
		delete(h.clients, client.SessionID)
		h.logger.Info("Hub", "Session has no more connections", map[string]interface{}{"session_id": client.SessionID})
	}
}

// MarkDirty schedules a state push for the session.
func (h *Hub) MarkDirty(sessionID string) {
	h.dirtyMu.Lock()
	h.dirty[sessionID] = struct{}{}
	h.dirtyMu.Unlock()
}

func (h *Hub) flush() {
	h.dirtyMu.Lock()
	pending := h.dirty
	h.dirty = make(map[string]struct{})
	h.dirtyMu.Unlock()

	for sessionID := range pending {
		if h.ConnectionCount(sessionID) == 0 {
			continue
		}
		data, err := h.render(sessionID)
		if err != nil {
			h.logger.Warn("Hub", "Failed to render session state", map[string]interface{}{
				"session_id": sessionID,
				"error":      err.Error(),
			})
			continue
		}
		h.SendSession(sessionID, data)
	}
}

func (h *Hub) ConnectionCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// SendSession delivers data to every connection of a session. Connections
// whose buffer is full are dropped.
func (h *Hub) SendSession(sessionID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.deliver(h.clients[sessionID], data)
}

// deliver must run under h.mu so no Send channel is closed meanwhile.
func (h *Hub) deliver(clients []*Client, data []byte) {
	for _, client := range clients {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Hub", "Client Send buffer full, dropping connection", map[string]interface{}{
				"session_id": client.SessionID,
			})
			go h.Unregister(client)
		}
	}
}

// sendUser delivers data to every local connection bound to userID.
func (h *Hub) sendUser(userID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, clients := range h.clients {
		for _, c := range clients {
			if c.UserID == userID {
				h.deliver([]*Client{c}, data)
			}
		}
	}
}

type savedNotice struct {
	Type      string    `json:"type"`
	UserID    string    `json:"user_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NotifySaved tells every editor of the user, on every instance, that a new
// snapshot was stored.
func (h *Hub) NotifySaved(userID string, updatedAt time.Time) {
	data, _ := json.Marshal(savedNotice{Type: "saved", UserID: userID, UpdatedAt: updatedAt})
	h.sendUser(userID, data)

	if h.rdb != nil {
		payload, _ := json.Marshal(map[string]interface{}{
			"target_user_id": userID,
			"origin":         h.instance,
			"message":        json.RawMessage(data),
		})
		if err := h.rdb.Publish(context.Background(), clusterChannel, payload).Err(); err != nil {
			h.logger.Warn("Hub", "Failed to publish cluster event", map[string]interface{}{"error": err.Error()})
		}
	}
}

// ListenSaved subscribes to the in-process canvas saved topic.
func (h *Hub) ListenSaved(ctx context.Context, pubSub *gochannel.GoChannel, topic string) error {
	messages, err := pubSub.Subscribe(ctx, topic)
	if err != nil {
		return err
	}
	go func() {
		for msg := range messages {
			var payload dto.NoteCanvasSavedMessage
			if err := json.Unmarshal(msg.Payload, &payload); err == nil && payload.UserId != "" {
				h.NotifySaved(payload.UserId, payload.UpdatedAt)
			}
			msg.Ack()
		}
	}()
	return nil
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload struct {
			TargetUserID string          `json:"target_user_id"`
			Origin       string          `json:"origin"`
			Message      json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn("Hub", "Redis msg parse error", map[string]interface{}{"error": err.Error()})
			continue
		}
		if payload.Origin == h.instance || payload.TargetUserID == "" {
			continue
		}
		h.sendUser(payload.TargetUserID, payload.Message)
	}
}
