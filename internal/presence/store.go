// Package presence holds the server-authoritative record of who occupies
// which room. Every mutation returns the broadcast events it produced, in
// the order they must be delivered.
package presence

import (
	"fmt"
	"sync"
	"time"

	"checkin-app/internal/models"
)

// Store enforces the occupancy invariants: a user occupies at most one
// room, and a room's count always equals the size of its occupant set.
// A store-wide lock serializes mutations; a checkin that spans two rooms
// (implicit checkout of the old one) is atomic under it.
type Store struct {
	mu     sync.RWMutex
	rooms  map[string]map[int]*models.CheckinRecord
	byUser map[int]*models.CheckinRecord

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		rooms:  make(map[string]map[int]*models.CheckinRecord),
		byUser: make(map[int]*models.CheckinRecord),
		now:    time.Now,
	}
}

// Checkin opens a record for the user in roomName. If the user holds a
// record in a different room it is closed first, and the returned events
// are the implicit checkout for the old room followed by the checkin for
// the new one. Re-checking into the current room refreshes the topic and
// since-timestamp and broadcasts only a checkin event.
func (s *Store) Checkin(user models.User, roomName, studyTopic string) []models.FeedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().UnixMilli()
	var events []models.FeedEvent

	if old := s.byUser[user.ID]; old != nil && old.RoomName != roomName {
		events = append(events, s.closeRecord(user, old, ts))
	}

	record := &models.CheckinRecord{
		UserID:     user.ID,
		Username:   user.Username,
		RoomName:   roomName,
		StudyTopic: studyTopic,
		Since:      ts,
	}

	occupants := s.rooms[roomName]
	if occupants == nil {
		occupants = make(map[int]*models.CheckinRecord)
		s.rooms[roomName] = occupants
	}
	occupants[user.ID] = record
	s.byUser[user.ID] = record

	events = append(events, models.FeedEvent{
		Type:             models.EventCheckin,
		Timestamp:        ts,
		UserID:           user.ID,
		Username:         user.Username,
		RoomName:         roomName,
		StudyTopic:       studyTopic,
		CurrentOccupancy: models.IntPtr(len(occupants)),
		Message:          fmt.Sprintf("%s checked in to %s", user.Username, roomName),
	})

	return events
}

// Checkout closes the user's open record, if any. Idempotent: with no open
// record it returns no events and changes nothing.
func (s *Store) Checkout(user models.User) []models.FeedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.byUser[user.ID]
	if record == nil {
		return nil
	}

	return []models.FeedEvent{s.closeRecord(user, record, s.now().UnixMilli())}
}

// closeRecord removes the record and builds its checkout event. Caller
// holds the write lock.
func (s *Store) closeRecord(user models.User, record *models.CheckinRecord, ts int64) models.FeedEvent {
	occupants := s.rooms[record.RoomName]
	delete(occupants, user.ID)
	if len(occupants) == 0 {
		delete(s.rooms, record.RoomName)
	}
	delete(s.byUser, user.ID)

	return models.FeedEvent{
		Type:             models.EventCheckout,
		Timestamp:        ts,
		UserID:           user.ID,
		Username:         user.Username,
		RoomName:         record.RoomName,
		CurrentOccupancy: models.IntPtr(len(occupants)),
		Message:          fmt.Sprintf("%s checked out of %s", user.Username, record.RoomName),
	}
}

// Occupancy reports the current occupant count of a room.
func (s *Store) Occupancy(roomName string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms[roomName])
}

// Snapshot captures the occupancy map and the open records under one lock,
// so the two halves of a history reply always agree.
func (s *Store) Snapshot() (map[string]int, []models.CheckinRecord) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	occupancy := make(map[string]int, len(s.rooms))
	var checkins []models.CheckinRecord
	for name, occupants := range s.rooms {
		occupancy[name] = len(occupants)
		for _, record := range occupants {
			checkins = append(checkins, *record)
		}
	}
	return occupancy, checkins
}
