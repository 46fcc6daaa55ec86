package client

import (
	"encoding/json"

	"checkin-app/internal/models"
	"checkin-app/pkg/logger"
)

// Session ties one connection manager to one state instance and speaks the
// frame protocol between them. User actions mutate state optimistically
// and then go to the server; inbound frames are dispatched to state one at
// a time in arrival order.
type Session struct {
	conn     *ConnManager
	state    *State
	username string
}

func NewSession(serverURL, username string) *Session {
	s := &Session{
		state:    NewState(),
		username: username,
	}
	s.conn = NewConnManager(serverURL)
	s.conn.OnConnect = s.announceIdentity
	s.conn.OnMessage = s.handleFrame
	return s
}

func (s *Session) Start() {
	s.conn.Connect()
}

func (s *Session) Close() {
	s.conn.Close()
}

func (s *Session) State() *State {
	return s.state
}

func (s *Session) Conn() *ConnManager {
	return s.conn
}

// announceIdentity runs after every connect, including reconnects: no
// identity survives a channel instance beyond what the server re-issues in
// the history reply.
func (s *Session) announceIdentity() {
	if s.username == "" {
		return
	}
	err := s.conn.SendJSON(models.ClientFrame{
		Type:     models.FrameSetUsername,
		Username: s.username,
	})
	if err != nil {
		logger.Error("Error announcing identity: %v", err)
	}
}

func (s *Session) handleFrame(data []byte) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		logger.Debug("Dropping malformed frame: %v", err)
		return
	}

	switch head.Type {
	case models.FrameHistory:
		var h models.HistoryFrame
		if err := json.Unmarshal(data, &h); err != nil {
			logger.Debug("Dropping bad history frame: %v", err)
			return
		}
		s.state.ApplyHistory(h)

	case string(models.EventCheckin), string(models.EventCheckout),
		string(models.EventConnection), string(models.EventDisconnection):
		var ev models.FeedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			logger.Debug("Dropping bad event frame: %v", err)
			return
		}
		s.state.ApplyEvent(ev)

	case models.FrameOccupancy:
		var f models.OccupancyFrame
		if err := json.Unmarshal(data, &f); err != nil {
			logger.Debug("Dropping bad occupancy frame: %v", err)
			return
		}
		s.state.ApplyOccupancy(f.RoomName, f.Count)

	case models.FrameError:
		var f models.ErrorFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return
		}
		logger.Info("Server rejected an action: %s", f.Message)
		s.state.SetNotice(f.Message)

	default:
		logger.Debug("Dropping frame of unknown type %q", head.Type)
	}
}

// Checkin applies the optimistic local state first, then sends the
// request. A send failure is reported but does not undo the local state;
// the next resync corrects it.
func (s *Session) Checkin(roomName, studyTopic string) error {
	s.state.OptimisticCheckin(roomName, studyTopic)
	return s.conn.SendJSON(models.ClientFrame{
		Type:       models.FrameCheckin,
		RoomName:   roomName,
		StudyTopic: studyTopic,
	})
}

func (s *Session) Checkout() error {
	s.state.OptimisticCheckout()
	return s.conn.SendJSON(models.ClientFrame{Type: models.FrameCheckout})
}
