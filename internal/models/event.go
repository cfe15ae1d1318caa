package models

import "time"

// Event statuses. Scheduled events roll to ongoing once start_time passes,
// and to completed once end_time passes. Canceled is set only by clients.
const (
	StatusScheduled = "scheduled"
	StatusOngoing   = "ongoing"
	StatusCompleted = "completed"
	StatusCanceled  = "canceled"
)

// ValidStatus reports whether s is one of the known event statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusScheduled, StatusOngoing, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

type Event struct {
	ID            int       `json:"event_id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Location      string    `json:"location"`
	MaxAttendees  int       `json:"max_attendees"`
	Status        string    `json:"status"`
	AttendeeCount int       `json:"attendee_count"`
}
