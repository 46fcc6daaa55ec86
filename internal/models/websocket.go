package models

type EventType string

const (
	EventConnection    EventType = "connection"
	EventDisconnection EventType = "disconnection"
	EventCheckin       EventType = "checkin"
	EventCheckout      EventType = "checkout"
)

// Frame type strings. Checkin and checkout double as request types from the
// client and event types from the server, matching the event type constants
// above.
const (
	FrameSetUsername = "setUsername"
	FrameCheckin     = "checkin"
	FrameCheckout    = "checkout"
	FrameHistory     = "history"
	FrameOccupancy   = "occupancyUpdate"
	FrameError       = "error"
)

// HeartbeatFrame is the out-of-band liveness frame. It is not JSON and
// requires no reply.
const HeartbeatFrame = "ping"

// FeedEvent is one presence transition. Immutable once broadcast; all
// timestamps are epoch milliseconds.
type FeedEvent struct {
	Type             EventType `json:"type"`
	Timestamp        int64     `json:"timestamp"`
	UserID           int       `json:"user_id,omitempty"`
	Username         string    `json:"username,omitempty"`
	RoomName         string    `json:"room_name,omitempty"`
	StudyTopic       string    `json:"study_topic,omitempty"`
	CurrentOccupancy *int      `json:"current_occupancy,omitempty"`
	Message          string    `json:"message,omitempty"`
}

// ClientFrame is any request the client sends over the channel.
type ClientFrame struct {
	Type       string `json:"type"`
	Username   string `json:"username,omitempty"`
	RoomName   string `json:"room_name,omitempty"`
	StudyTopic string `json:"study_topic,omitempty"`
}

// HistoryFrame is the resync payload delivered once after identity is
// resolved on a fresh channel. Feed holds the bounded backlog,
// CurrentCheckins the open records as checkin-shaped events, and
// OccupancyData the full room snapshot. The three parts are captured under
// one lock so they always agree.
type HistoryFrame struct {
	Type            string         `json:"type"`
	UserID          int            `json:"user_id"`
	Username        string         `json:"username"`
	Feed            []FeedEvent    `json:"feed"`
	CurrentCheckins []FeedEvent    `json:"current_checkins"`
	OccupancyData   map[string]int `json:"occupancy_data"`
}

type OccupancyFrame struct {
	Type     string `json:"type"`
	RoomName string `json:"room_name"`
	Count    int    `json:"count"`
}

type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// IntPtr is a helper for FeedEvent.CurrentOccupancy, which is a pointer so
// an occupancy of zero still serializes.
func IntPtr(n int) *int {
	return &n
}
