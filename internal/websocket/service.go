package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"checkin-app/internal/cache"
	"checkin-app/internal/database"
	"checkin-app/internal/history"
	"checkin-app/internal/models"
	"checkin-app/internal/presence"
	"checkin-app/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Service bundles the server-side collaborators every connection needs:
// the authoritative store, the replay backlog, identity resolution, the
// occupancy projection cache and the broadcast hub.
type Service struct {
	Store   *presence.Store
	History *history.Log
	Users   database.UserRepository
	Cache   cache.OccupancyCache
	Hub     *Hub

	// pubMu extends the store's serialization through publication, so
	// cache writes and occupancyUpdate frames leave in mutation order
	// across connections, not just within one.
	pubMu sync.Mutex
}

func NewService(store *presence.Store, log *history.Log, users database.UserRepository, occ cache.OccupancyCache, hub *Hub) *Service {
	return &Service{
		Store:   store,
		History: log,
		Users:   users,
		Cache:   occ,
		Hub:     hub,
	}
}

// HandleConnection takes ownership of an upgraded connection. A non-nil
// user means identity was already resolved from a token; otherwise the
// client announces it with a setUsername frame.
func (s *Service) HandleConnection(conn *websocket.Conn, user *models.User) {
	client := &Client{
		svc:       s,
		conn:      conn,
		send:      make(chan []byte, 256),
		sessionID: uuid.NewString(),
	}

	s.Hub.Register <- client
	go client.WritePump()

	if user != nil {
		client.resolveIdentity(user)
	}

	go client.ReadPump()
}

// PublishCheckin applies the checkin and publishes its events before any
// other mutation can publish.
func (s *Service) PublishCheckin(user models.User, roomName, studyTopic string) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	s.publish(s.Store.Checkin(user, roomName, studyTopic))
}

func (s *Service) PublishCheckout(user models.User) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	s.publish(s.Store.Checkout(user))
}

// PublishConnection announces a resolved identity on the feed.
func (s *Service) PublishConnection(user *models.User) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	s.publish([]models.FeedEvent{{
		Type:      models.EventConnection,
		Timestamp: time.Now().UnixMilli(),
		UserID:    user.ID,
		Username:  user.Username,
		Message:   fmt.Sprintf("%s connected", user.Username),
	}})
}

// PublishDisconnect closes the user's open checkin, if any, and announces
// the disconnection as one batch, so occupancy never goes stale when a
// channel drops.
func (s *Service) PublishDisconnect(user *models.User) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	events := s.Store.Checkout(*user)
	events = append(events, models.FeedEvent{
		Type:      models.EventDisconnection,
		Timestamp: time.Now().UnixMilli(),
		UserID:    user.ID,
		Username:  user.Username,
		Message:   fmt.Sprintf("%s disconnected", user.Username),
	})
	s.publish(events)
}

// publish appends events to the backlog, writes occupancy through to the
// cache, and broadcasts each event plus an occupancyUpdate for the room it
// touched. Events must already be in delivery order; caller holds pubMu.
func (s *Service) publish(events []models.FeedEvent) {
	ctx := context.Background()
	for _, ev := range events {
		s.History.Append(ev)

		data, err := json.Marshal(ev)
		if err != nil {
			logger.Error("Error marshaling feed event: %v", err)
			continue
		}
		s.Hub.Broadcast <- data

		if ev.RoomName == "" || ev.CurrentOccupancy == nil {
			continue
		}

		if err := s.Cache.SetCount(ctx, ev.RoomName, *ev.CurrentOccupancy); err != nil {
			logger.Error("Error writing occupancy for %s to cache: %v", ev.RoomName, err)
		}

		update, err := json.Marshal(models.OccupancyFrame{
			Type:     models.FrameOccupancy,
			RoomName: ev.RoomName,
			Count:    *ev.CurrentOccupancy,
		})
		if err == nil {
			s.Hub.Broadcast <- update
		}
	}
}

// historyFrame builds the resync payload. Occupancy data and current
// checkins come from one store snapshot so they always agree; the backlog
// may trail by an in-flight event, which the client-side dedup absorbs.
func (s *Service) historyFrame(user *models.User) models.HistoryFrame {
	occupancy, checkins := s.Store.Snapshot()

	current := make([]models.FeedEvent, 0, len(checkins))
	for _, rec := range checkins {
		current = append(current, models.FeedEvent{
			Type:             models.EventCheckin,
			Timestamp:        rec.Since,
			UserID:           rec.UserID,
			Username:         rec.Username,
			RoomName:         rec.RoomName,
			StudyTopic:       rec.StudyTopic,
			CurrentOccupancy: models.IntPtr(occupancy[rec.RoomName]),
			Message:          fmt.Sprintf("%s is in %s", rec.Username, rec.RoomName),
		})
	}

	return models.HistoryFrame{
		Type:            models.FrameHistory,
		UserID:          user.ID,
		Username:        user.Username,
		Feed:            s.History.Recent(),
		CurrentCheckins: current,
		OccupancyData:   occupancy,
	}
}
