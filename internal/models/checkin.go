package models

// CheckinRecord is one user's open occupancy of a study room. A record is
// closed on checkout, on a later checkin elsewhere, or when the owning
// connection drops.
type CheckinRecord struct {
	UserID     int    `json:"user_id"`
	Username   string `json:"username"`
	RoomName   string `json:"room_name"`
	StudyTopic string `json:"study_topic,omitempty"`
	Since      int64  `json:"since"`
}
