package websocket

import (
	"checkin-app/pkg/logger"
)

// Hub fans broadcast frames out to every connected viewer. Presence is
// building-wide, so a single hub serves all connections; room state lives
// in the presence store, not here.
type Hub struct {
	clients    map[*Client]bool
	Broadcast  chan []byte
	Register   chan *Client
	Unregister chan *Client
	shutdown   chan bool
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		Broadcast:  make(chan []byte, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		shutdown:   make(chan bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.shutdown:
			for client := range h.clients {
				close(client.send)
			}
			return

		case client := <-h.Register:
			h.clients[client] = true
			logger.Debug("session %s connected (%d active)", client.sessionID, len(h.clients))

		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				logger.Debug("session %s disconnected (%d active)", client.sessionID, len(h.clients))
			}

		case message := <-h.Broadcast:
			h.broadcastToAll(message)
		}
	}
}

func (h *Hub) broadcastToAll(message []byte) {
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			// Slow consumer; drop it and let the client reconnect.
			close(client.send)
			delete(h.clients, client)
		}
	}
}

func (h *Hub) ShutdownHub() {
	select {
	case h.shutdown <- true:
	default:
	}
}
