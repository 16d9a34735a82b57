package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/chatcal/schedcore/internal/availability"
)

// ErrEventNotFound reports a delete against a handle the backend no longer knows.
var ErrEventNotFound = errors.New("calendar event not found")

// OperationRecorder observes backend calls. A nil recorder records nothing.
type OperationRecorder interface {
	RecordCalendarOperation(ctx context.Context, operation, status string, duration time.Duration)
}

// Client wraps the Google Calendar service for a single scheduling calendar.
type Client struct {
	svc        *calendar.Service
	calendarID string
	recorder   OperationRecorder
}

// NewClient creates a Calendar client over an authenticated HTTP client.
// The HTTP client carries OAuth credentials from the token vault.
func NewClient(ctx context.Context, httpClient *http.Client, calendarID string) (*Client, error) {
	svc, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	return &Client{svc: svc, calendarID: calendarID}, nil
}

// SetRecorder attaches an operation recorder. Must be called before the
// client is shared across goroutines.
func (c *Client) SetRecorder(r OperationRecorder) {
	c.recorder = r
}

func (c *Client) record(ctx context.Context, operation string, err error, started time.Time) {
	if c.recorder == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.recorder.RecordCalendarOperation(ctx, operation, status, time.Since(started))
}

// BusyIntervals queries free/busy for the scheduling calendar in [from, to).
// Per-calendar errors in the response are surfaced as failures, never as an
// empty (free) result.
func (c *Client) BusyIntervals(ctx context.Context, from, to time.Time) (_ []availability.TimeWindow, err error) {
	started := time.Now()
	defer func() { c.record(ctx, "freebusy", err, started) }()

	query := &calendar.FreeBusyRequest{
		TimeMin: from.Format(time.RFC3339),
		TimeMax: to.Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: c.calendarID}},
	}

	result, err := c.svc.Freebusy.Query(query).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to query freebusy: %w", err)
	}

	cal, ok := result.Calendars[c.calendarID]
	if !ok {
		return nil, fmt.Errorf("freebusy response missing calendar %s", c.calendarID)
	}
	if len(cal.Errors) > 0 {
		return nil, fmt.Errorf("freebusy lookup failed for %s: %s", c.calendarID, cal.Errors[0].Reason)
	}

	var busy []availability.TimeWindow
	for _, interval := range cal.Busy {
		start, err := time.Parse(time.RFC3339, interval.Start)
		if err != nil {
			return nil, fmt.Errorf("invalid busy interval start %q: %w", interval.Start, err)
		}
		end, err := time.Parse(time.RFC3339, interval.End)
		if err != nil {
			return nil, fmt.Errorf("invalid busy interval end %q: %w", interval.End, err)
		}
		busy = append(busy, availability.TimeWindow{Start: start, End: end})
	}

	return busy, nil
}

// CreateEvent creates the backing calendar event for a booking. A Google Meet
// conference is attached when requested.
func (c *Client) CreateEvent(ctx context.Context, input EventInput) (_ CreatedEvent, err error) {
	started := time.Now()
	defer func() { c.record(ctx, "create", err, started) }()

	tz := input.TimeZone
	if tz == "" {
		tz = "UTC"
	}

	event := &calendar.Event{
		Summary:     input.Title,
		Description: input.Description,
		Start: &calendar.EventDateTime{
			DateTime: input.Start.Format(time.RFC3339),
			TimeZone: tz,
		},
		End: &calendar.EventDateTime{
			DateTime: input.Start.Add(input.Duration).Format(time.RFC3339),
			TimeZone: tz,
		},
	}

	if input.AttendeeEmail != "" {
		event.Attendees = []*calendar.EventAttendee{{Email: input.AttendeeEmail}}
	}

	call := c.svc.Events.Insert(c.calendarID, event).Context(ctx)
	if input.WantConferencing {
		call = call.ConferenceDataVersion(1)
		event.ConferenceData = &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId: fmt.Sprintf("meet-%s", uuid.NewString()),
			},
		}
	}

	created, err := call.Do()
	if err != nil {
		return CreatedEvent{}, fmt.Errorf("failed to create event: %w", err)
	}

	return CreatedEvent{
		Handle:   created.Id,
		MeetLink: meetLink(created),
	}, nil
}

// DeleteEvent deletes a previously created event by handle.
func (c *Client) DeleteEvent(ctx context.Context, handle string) (err error) {
	started := time.Now()
	defer func() { c.record(ctx, "delete", err, started) }()

	err = c.svc.Events.Delete(c.calendarID, handle).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
			return fmt.Errorf("%w: %s", ErrEventNotFound, handle)
		}
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

// meetLink extracts the video conferencing URL from a created event.
func meetLink(event *calendar.Event) string {
	if event.HangoutLink != "" {
		return event.HangoutLink
	}
	if event.ConferenceData == nil {
		return ""
	}
	for _, entry := range event.ConferenceData.EntryPoints {
		if entry.EntryPointType == "video" {
			return entry.Uri
		}
	}
	return ""
}
