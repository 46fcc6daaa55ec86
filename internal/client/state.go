package client

import (
	"sort"
	"sync"
	"time"

	"checkin-app/internal/aggregate"
	"checkin-app/internal/models"
)

const (
	// dedupWindowMillis absorbs duplicate delivery across a reconnect
	// race: an event matching an existing feed entry on (type, user,
	// room) within this window is discarded.
	dedupWindowMillis = 1000

	// pendingEchoWindow is how long an optimistic action waits for its
	// authoritative echo before the "may have failed" warning shows.
	pendingEchoWindow = 5 * time.Second
	// warningVisibleFor bounds how long that warning stays visible.
	warningVisibleFor = 5 * time.Second
	// noticeVisibleFor bounds how long a server error frame is surfaced.
	noticeVisibleFor = 5 * time.Second

	// feedDisplayLimit bounds the feed kept for display. Presentation
	// only; the server backlog is the replayable history.
	feedDisplayLimit = 200
)

type CheckinStatus string

const (
	StatusPending   CheckinStatus = "pending"
	StatusConfirmed CheckinStatus = "confirmed"
)

// OwnCheckin is the client's view of its own presence. Status pending
// means the state was applied optimistically and no authoritative echo has
// confirmed it yet.
type OwnCheckin struct {
	Active     bool
	RoomName   string
	StudyTopic string
	Status     CheckinStatus
	Since      int64
}

// pendingAction is the single outstanding optimistic marker. A newer user
// action supersedes it; it is never cancelled explicitly.
type pendingAction struct {
	kind string
	at   time.Time
}

// State is the derived, non-authoritative client state: the display feed,
// the occupancy cache, and the reconciliation bookkeeping. All methods are
// safe for concurrent use.
type State struct {
	mu        sync.Mutex
	userID    int
	username  string
	feed      []models.FeedEvent
	occupancy map[string]int
	own       OwnCheckin
	pending   *pendingAction

	noticeMsg   string
	noticeUntil time.Time

	now func() time.Time
}

func NewState() *State {
	return &State{
		occupancy: make(map[string]int),
		now:       time.Now,
	}
}

// ApplyHistory seeds state from the resync payload. The server snapshot is
// authoritative: the occupancy cache is replaced outright, and own-checkin
// state comes strictly from current_checkins. Whatever this client
// remembered from before the reconnect is discarded, including a pending
// optimistic flag for a request the server never saw.
func (s *State) ApplyHistory(h models.HistoryFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.userID = h.UserID
	s.username = h.Username

	for _, ev := range h.Feed {
		s.insertEvent(ev)
	}

	s.occupancy = make(map[string]int, len(h.OccupancyData))
	for room, count := range h.OccupancyData {
		s.occupancy[room] = count
	}

	s.own = OwnCheckin{}
	for _, ev := range h.CurrentCheckins {
		if ev.UserID == s.userID {
			s.own = OwnCheckin{
				Active:     true,
				RoomName:   ev.RoomName,
				StudyTopic: ev.StudyTopic,
				Status:     StatusConfirmed,
				Since:      ev.Timestamp,
			}
		}
	}
	s.pending = nil
}

// ApplyEvent merges one incremental event. Returns false for duplicates,
// which update nothing visible (occupancy assignment is idempotent).
func (s *State) ApplyEvent(ev models.FeedEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := s.insertEvent(ev)

	if ev.RoomName != "" && ev.CurrentOccupancy != nil {
		s.occupancy[ev.RoomName] = *ev.CurrentOccupancy
	}

	if added && ev.UserID != 0 && ev.UserID == s.userID {
		s.reconcile(ev)
	}
	return added
}

// reconcile applies an authoritative echo about this user. Caller holds
// the lock.
func (s *State) reconcile(ev models.FeedEvent) {
	switch ev.Type {
	case models.EventCheckin:
		s.own = OwnCheckin{
			Active:     true,
			RoomName:   ev.RoomName,
			StudyTopic: ev.StudyTopic,
			Status:     StatusConfirmed,
			Since:      ev.Timestamp,
		}
	case models.EventCheckout:
		// While a checkin is pending this is the implicit checkout of
		// the previous room, not a verdict on the pending request.
		if s.pending == nil || s.pending.kind != models.FrameCheckin {
			s.own = OwnCheckin{}
		}
	default:
		return
	}

	if s.pending != nil && string(ev.Type) == s.pending.kind {
		s.pending = nil
	}
}

func (s *State) ApplyOccupancy(roomName string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.occupancy[roomName] = count
}

// OptimisticCheckin records the local effect of a checkin before any
// server confirmation and arms the pending marker, superseding any prior
// one.
func (s *State) OptimisticCheckin(roomName, studyTopic string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.own = OwnCheckin{
		Active:     true,
		RoomName:   roomName,
		StudyTopic: studyTopic,
		Status:     StatusPending,
		Since:      s.now().UnixMilli(),
	}
	s.pending = &pendingAction{kind: models.FrameCheckin, at: s.now()}
}

func (s *State) OptimisticCheckout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.own = OwnCheckin{}
	s.pending = &pendingAction{kind: models.FrameCheckout, at: s.now()}
}

// Warning reports the auto-expiring "update may have failed" message: it
// appears once a pending action has gone unechoed past the window and
// disappears on its own, without rolling anything back. Correction is left
// to the next authoritative event or the resync on reconnect.
func (s *State) Warning() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return ""
	}
	age := s.now().Sub(s.pending.at)
	if age >= pendingEchoWindow && age < pendingEchoWindow+warningVisibleFor {
		return "update may have failed"
	}
	return ""
}

// SetNotice surfaces a server-side rejection for a bounded time.
func (s *State) SetNotice(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noticeMsg = message
	s.noticeUntil = s.now().Add(noticeVisibleFor)
}

func (s *State) Notice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.now().Before(s.noticeUntil) {
		return s.noticeMsg
	}
	return ""
}

// insertEvent adds a non-duplicate event and keeps the feed sorted newest
// first, trimmed for display. Caller holds the lock.
func (s *State) insertEvent(ev models.FeedEvent) bool {
	for _, existing := range s.feed {
		if existing.Type == ev.Type && existing.UserID == ev.UserID && existing.RoomName == ev.RoomName {
			delta := existing.Timestamp - ev.Timestamp
			if delta < 0 {
				delta = -delta
			}
			if delta < dedupWindowMillis {
				return false
			}
		}
	}

	s.feed = append(s.feed, ev)
	sort.SliceStable(s.feed, func(i, j int) bool {
		return s.feed[i].Timestamp > s.feed[j].Timestamp
	})
	if len(s.feed) > feedDisplayLimit {
		s.feed = s.feed[:feedDisplayLimit]
	}
	return true
}

func (s *State) Feed() []models.FeedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.FeedEvent, len(s.feed))
	copy(out, s.feed)
	return out
}

func (s *State) Occupancy() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.occupancy))
	for room, count := range s.occupancy {
		out[room] = count
	}
	return out
}

// BuildingOccupancy projects the occupancy cache into a building total.
func (s *State) BuildingOccupancy(code string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return aggregate.BuildingOccupancy(s.occupancy, code)
}

func (s *State) Own() OwnCheckin {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.own
}

func (s *State) UserID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *State) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}
