package models

type Attendee struct {
	ID            int    `json:"attendee_id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	PhoneNumber   string `json:"phone_number,omitempty"`
	EventID       int    `json:"event_id"`
	CheckInStatus bool   `json:"check_in_status"`
}
