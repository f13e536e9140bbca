package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs registers the connection with the hub and blocks until it closes.
func ServeWs(hub *Hub, c *websocket.Conn, sessionID, userID string, input InputFunc) {
	client := &Client{
		Hub:       hub,
		Conn:      c,
		SessionID: sessionID,
		UserID:    userID,
		Send:      make(chan []byte, 256),
		input:     input,
	}
	if !client.Hub.Register(client) {
		c.Close()
		return
	}

	go client.writePump()
	client.readPump()
}
