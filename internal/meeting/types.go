package meeting

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a meeting. Cancelled is terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Attendee is the contact a meeting is booked with. Name is required plus at
// least one of Email or Phone.
type Attendee struct {
	Name  string
	Email string
	Phone string
}

func (a Attendee) validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return &InvalidRequestError{Field: "attendee name", Reason: "required"}
	}
	if a.Email == "" && a.Phone == "" {
		return &InvalidRequestError{Field: "attendee contact", Reason: "email or phone required"}
	}
	return nil
}

// Meeting is a booked calendar appointment.
type Meeting struct {
	ID       string
	Title    string
	Start    time.Time
	Duration time.Duration
	Attendee Attendee
	MeetLink string

	// Handle is the calendar backend's event identifier, needed for deletes.
	Handle string

	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// End returns the instant the meeting finishes.
func (m *Meeting) End() time.Time {
	return m.Start.Add(m.Duration)
}

// EncodeID derives the human-readable meeting token from the start minute and
// duration: month, day, hour and minute as four-digit groups, then the
// duration in minutes, zero-padded to three digits. Two meetings sharing the
// same minute and duration share the same ID; that collision is accepted in
// exchange for a token an attendee can read back over chat.
func EncodeID(start time.Time, duration time.Duration) string {
	return fmt.Sprintf("%02d%02d-%02d%02d-%03d",
		int(start.Month()), start.Day(),
		start.Hour(), start.Minute(),
		int(duration.Minutes()))
}

// InvalidRequestError reports a booking or cancellation request missing
// required fields.
type InvalidRequestError struct {
	Field  string
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Reason)
}

// DuplicateIDError reports that a confirmed meeting already holds the ID the
// new booking would be assigned.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("a confirmed meeting already exists with id %s", e.ID)
}

// NotFoundError reports that no confirmed meeting matched a cancellation
// request.
type NotFoundError struct {
	Query string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no confirmed meeting matches %q", e.Query)
}

// AmbiguousMatchError reports that a cancellation request matched several
// meetings equally well. The caller must supply an ID or a more specific
// time; nothing was cancelled.
type AmbiguousMatchError struct {
	Candidates []*Meeting
}

func (e *AmbiguousMatchError) Error() string {
	ids := make([]string, len(e.Candidates))
	for i, m := range e.Candidates {
		ids[i] = m.ID
	}
	return fmt.Sprintf("multiple meetings match: %s", strings.Join(ids, ", "))
}
