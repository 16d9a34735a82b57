package calendar

import (
	"time"
)

// EventInput describes the event to create for a booking.
type EventInput struct {
	Title            string
	Description      string
	Start            time.Time
	Duration         time.Duration
	TimeZone         string
	AttendeeEmail    string
	WantConferencing bool
}

// CreatedEvent is the backend's answer to a create call.
type CreatedEvent struct {
	// Handle is the backend event ID, used for deletion.
	Handle string

	// MeetLink is the conferencing URL when one was requested and granted.
	MeetLink string
}
