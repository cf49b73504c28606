package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs upgrades the connection and streams runID's StageEvents to it
// until the client disconnects.
func ServeWs(hub *Hub, c *websocket.Conn, runID string) {
	client := &Client{Hub: hub, Conn: c, RunID: runID, Send: make(chan []byte, 32), done: make(chan struct{})}
	hub.register(runID, client)

	go client.writePump()
	client.readPump()
}
