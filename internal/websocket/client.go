package websocket

import (
	"context"
	"encoding/json"
	"time"

	"checkin-app/internal/models"
	"checkin-app/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 1024
)

// Client is the server side of one logical channel. Inbound frames are
// processed strictly one at a time by ReadPump, which gives each user's
// operations their delivery order.
type Client struct {
	svc       *Service
	conn      *websocket.Conn
	send      chan []byte
	sessionID string

	// user is nil until identity is resolved. Written before ReadPump
	// starts or from within it, so no lock is needed.
	user *models.User
}

func (c *Client) ReadPump() {
	defer func() {
		c.disconnect()
		c.svc.Hub.Unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket error on session %s: %v", c.sessionID, err)
			}
			break
		}

		// Any inbound traffic proves liveness, including the
		// out-of-band "ping" heartbeat.
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		if string(message) == models.HeartbeatFrame {
			continue
		}

		c.handleFrame(message)
	}
}

func (c *Client) handleFrame(message []byte) {
	var frame models.ClientFrame
	if err := json.Unmarshal(message, &frame); err != nil {
		logger.Debug("Dropping malformed frame on session %s: %v", c.sessionID, err)
		c.sendError("invalid message format")
		return
	}

	switch frame.Type {
	case models.FrameSetUsername:
		if frame.Username == "" {
			c.sendError("username required")
			return
		}
		user, err := c.svc.Users.GetOrCreateUserByUsername(context.Background(), frame.Username)
		if err != nil {
			logger.Error("Error resolving user %q: %v", frame.Username, err)
			c.sendError("could not resolve identity")
			return
		}
		c.resolveIdentity(user)

	case models.FrameCheckin:
		if c.user == nil {
			c.sendError("set a username before checking in")
			return
		}
		if frame.RoomName == "" {
			c.sendError("room_name is required")
			return
		}
		c.svc.PublishCheckin(*c.user, frame.RoomName, frame.StudyTopic)

	case models.FrameCheckout:
		if c.user == nil {
			c.sendError("set a username before checking out")
			return
		}
		c.svc.PublishCheckout(*c.user)

	default:
		c.sendError("unknown message type")
	}
}

// resolveIdentity pins the user to this channel, announces the connection
// and replies with the history snapshot. Runs again on every reconnect
// since a reconnect is a fresh Client.
func (c *Client) resolveIdentity(user *models.User) {
	if c.user != nil && c.user.ID != user.ID {
		// The channel is changing hands. The previous identity's open
		// checkin must not outlive its last channel, or its occupancy
		// would stay stale forever.
		c.svc.PublishCheckout(*c.user)
	}
	c.user = user

	c.svc.PublishConnection(user)

	if data, err := json.Marshal(c.svc.historyFrame(user)); err == nil {
		c.sendOrClose(data)
	} else {
		logger.Error("Error marshaling history for session %s: %v", c.sessionID, err)
	}

	logger.Info("User %s (id %d) identified on session %s", user.Username, user.ID, c.sessionID)
}

func (c *Client) disconnect() {
	if c.user == nil {
		return
	}
	c.svc.PublishDisconnect(c.user)
}

func (c *Client) sendError(message string) {
	data, err := json.Marshal(models.ErrorFrame{Type: models.FrameError, Message: message})
	if err != nil {
		return
	}
	c.trySend(data)
}

func (c *Client) trySend(data []byte) {
	select {
	case c.send <- data:
	default:
	}
}

// sendOrClose queues a frame the client must receive, the resync reply. A
// full buffer means the channel is already wedged; close it so the client
// redials and resyncs on the fresh channel.
func (c *Client) sendOrClose(data []byte) {
	select {
	case c.send <- data:
	default:
		c.conn.Close()
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Error("Write error on session %s: %v", c.sessionID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
