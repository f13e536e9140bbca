package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"studyhub-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(nil, "node-a", func(id string) ([]byte, error) {
		return []byte("state:" + id), nil
	}, logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)
	return h
}

func testClient(h *Hub, sessionID, userID string) *Client {
	c := &Client{Hub: h, SessionID: sessionID, UserID: userID, Send: make(chan []byte, 8)}
	h.Register(c)
	return c
}

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg := <-c.Send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message")
		return nil
	}
}

func TestHub_CoalescesStatePushes(t *testing.T) {
	h := newTestHub(t)
	c := testClient(h, "s-1", "")

	h.MarkDirty("s-1")
	h.MarkDirty("s-1")

	assert.Equal(t, "state:s-1", string(receive(t, c)))
	select {
	case extra := <-c.Send:
		t.Fatalf("unexpected second push %q", extra)
	case <-time.After(3 * flushInterval):
	}
}

func TestHub_SessionsAreIsolated(t *testing.T) {
	h := newTestHub(t)
	a := testClient(h, "s-a", "")
	b := testClient(h, "s-b", "")
	receive(t, a)
	receive(t, b)

	h.SendSession("s-a", []byte("only-a"))

	assert.Equal(t, "only-a", string(receive(t, a)))
	assert.Empty(t, b.Send)
}

func TestHub_NotifySavedTargetsUser(t *testing.T) {
	h := newTestHub(t)
	mine := testClient(h, "s-1", "u-1")
	other := testClient(h, "s-2", "u-2")
	receive(t, mine)
	receive(t, other)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	h.NotifySaved("u-1", at)

	var notice savedNotice
	require.NoError(t, json.Unmarshal(receive(t, mine), &notice))
	assert.Equal(t, "saved", notice.Type)
	assert.Equal(t, at, notice.UpdatedAt)
	assert.Empty(t, other.Send)
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	h := newTestHub(t)
	c := testClient(h, "s-1", "")
	receive(t, c)

	h.Unregister(c)

	require.Eventually(t, func() bool { return h.ConnectionCount("s-1") == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-c.Send
	assert.False(t, open)
}

func TestHub_UnregisterAfterStopDoesNotBlock(t *testing.T) {
	h := NewHub(nil, "node-a", func(id string) ([]byte, error) { return nil, nil }, logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()
	c := &Client{Hub: h, SessionID: "s-1", Send: make(chan []byte, 1)}
	require.True(t, h.Register(c))

	cancel()
	<-stopped

	returned := make(chan struct{})
	go func() {
		h.Unregister(c)
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Unregister blocked after the hub stopped")
	}
	assert.False(t, h.Register(&Client{Hub: h, SessionID: "s-2"}))
}
