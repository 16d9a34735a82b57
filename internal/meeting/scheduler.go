package meeting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chatcal/schedcore/internal/availability"
	"github.com/chatcal/schedcore/internal/calendar"
	"github.com/chatcal/schedcore/internal/logging"
)

// Backend performs the calendar mutations behind bookings and cancellations.
type Backend interface {
	CreateEvent(ctx context.Context, in calendar.EventInput) (calendar.CreatedEvent, error)
	DeleteEvent(ctx context.Context, handle string) error
}

// Store persists meetings across process restarts. Cancelled meetings stay on
// record with a terminal status rather than being deleted.
type Store interface {
	SaveMeeting(ctx context.Context, m *Meeting) error
	GetMeeting(ctx context.Context, id string) (*Meeting, error)
	ListMeetingsByStatus(ctx context.Context, status Status) ([]*Meeting, error)
	ListUpcomingMeetings(ctx context.Context, from time.Time) ([]*Meeting, error)
	UpdateMeetingStatus(ctx context.Context, id string, status Status) error
}

// Notifier dispatches confirmations to attendees. Failures are reported as
// warnings on an otherwise successful result and never roll back a committed
// booking or cancellation.
type Notifier interface {
	SendBookingConfirmation(ctx context.Context, m *Meeting) error
	SendCancellationNotice(ctx context.Context, m *Meeting) error
}

// BookRequest is a fully resolved booking: the start instant has already been
// through temporal resolution.
type BookRequest struct {
	Title            string
	Start            time.Time
	Duration         time.Duration
	Attendee         Attendee
	WantConferencing bool
}

// CancelRequest identifies a meeting to cancel. ID is optional; without it,
// matching falls back to attendee name similarity plus proximity to Around.
// ExplicitTime records whether the caller actually named a clock time, which
// gates the same-day ambiguity check.
type CancelRequest struct {
	ID           string
	AttendeeName string
	Around       time.Time
	ExplicitTime bool
}

// Result is the outcome of a committed booking or cancellation. Warnings
// carry notification failures that did not affect the calendar mutation.
type Result struct {
	Meeting  *Meeting
	Warnings []string
}

// Scheduler runs the meeting lifecycle: validated booking, cancellation with
// fuzzy matching, and upcoming-meeting listing.
type Scheduler struct {
	engine   *availability.Engine
	backend  Backend
	store    Store
	notifier Notifier
	timezone *time.Location
	logger   *slog.Logger

	now func() time.Time
}

// NewScheduler wires a scheduler. The engine owns working-hours and conflict
// validation; the backend owns calendar mutations.
func NewScheduler(engine *availability.Engine, backend Backend, store Store, notifier Notifier, tz *time.Location, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		engine:   engine,
		backend:  backend,
		store:    store,
		notifier: notifier,
		timezone: tz,
		logger:   logger,
		now:      time.Now,
	}
}

// Book validates and commits a booking. Checks run strictly before the
// calendar mutation: attendee contact, working hours, conflicts, then ID
// uniqueness against confirmed meetings. Any failure aborts with nothing
// created. Once the backend create has been issued the booking is committed;
// notification failures come back as warnings only.
func (s *Scheduler) Book(ctx context.Context, req BookRequest) (*Result, error) {
	if err := req.Attendee.validate(); err != nil {
		return nil, err
	}
	if req.Duration <= 0 {
		return nil, &InvalidRequestError{Field: "duration", Reason: "must be positive"}
	}

	start := req.Start.In(s.timezone)
	if err := s.engine.CheckBookable(ctx, start, req.Duration); err != nil {
		return nil, err
	}

	id := EncodeID(start, req.Duration)
	if existing, err := s.store.GetMeeting(ctx, id); err != nil {
		return nil, fmt.Errorf("meeting lookup failed: %w", err)
	} else if existing != nil && existing.Status == StatusConfirmed {
		return nil, &DuplicateIDError{ID: id}
	}

	title := req.Title
	if title == "" {
		title = fmt.Sprintf("Meeting with %s", req.Attendee.Name)
	}

	m := &Meeting{
		ID:       id,
		Title:    title,
		Start:    start,
		Duration: req.Duration,
		Attendee: req.Attendee,
		Status:   StatusPending,
	}

	created, err := s.backend.CreateEvent(ctx, calendar.EventInput{
		Title:            m.Title,
		Description:      fmt.Sprintf("Booked via scheduling assistant (id %s)", id),
		Start:            start,
		Duration:         req.Duration,
		TimeZone:         s.timezone.String(),
		AttendeeEmail:    req.Attendee.Email,
		WantConferencing: req.WantConferencing,
	})
	if err != nil {
		return nil, fmt.Errorf("calendar event creation failed: %w", err)
	}

	now := s.now()
	m.Handle = created.Handle
	m.MeetLink = created.MeetLink
	m.Status = StatusConfirmed
	m.CreatedAt = now
	m.UpdatedAt = now

	if err := s.store.SaveMeeting(ctx, m); err != nil {
		// The calendar event exists; losing the local record must not look
		// like a failed booking.
		s.logger.Error("meeting persisted to calendar but not to storage",
			logging.MeetingID(id), logging.Err(err))
	}

	result := &Result{Meeting: m}
	if err := s.notifier.SendBookingConfirmation(ctx, m); err != nil {
		s.logger.Warn("booking confirmation not delivered",
			logging.MeetingID(id), logging.Err(err))
		result.Warnings = append(result.Warnings, fmt.Sprintf("confirmation notification failed: %v", err))
	}

	s.logger.Info("meeting booked",
		logging.Operation("meeting.book"),
		logging.MeetingID(id),
		logging.UserHash(req.Attendee.Email),
		slog.Time("start", start),
		slog.Duration("duration", req.Duration))
	return result, nil
}

// Cancel finds and cancels a confirmed meeting. With an ID the lookup is
// direct; otherwise candidates are filtered by attendee name similarity and
// ranked by distance from the requested time. Zero candidates fail with
// *NotFoundError; several equally plausible ones fail with
// *AmbiguousMatchError and nothing is cancelled.
func (s *Scheduler) Cancel(ctx context.Context, req CancelRequest) (*Result, error) {
	m, err := s.findCancellationTarget(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.backend.DeleteEvent(ctx, m.Handle); err != nil {
		if !errors.Is(err, calendar.ErrEventNotFound) {
			return nil, fmt.Errorf("calendar event deletion failed: %w", err)
		}
		// Already gone upstream; finish the local transition anyway.
		s.logger.Warn("calendar event already deleted",
			logging.MeetingID(m.ID))
	}

	m.Status = StatusCancelled
	m.UpdatedAt = s.now()
	if err := s.store.UpdateMeetingStatus(ctx, m.ID, StatusCancelled); err != nil {
		s.logger.Error("cancellation committed to calendar but not to storage",
			logging.MeetingID(m.ID), logging.Err(err))
	}

	result := &Result{Meeting: m}
	if err := s.notifier.SendCancellationNotice(ctx, m); err != nil {
		s.logger.Warn("cancellation notice not delivered",
			logging.MeetingID(m.ID), logging.Err(err))
		result.Warnings = append(result.Warnings, fmt.Sprintf("cancellation notification failed: %v", err))
	}

	s.logger.Info("meeting cancelled",
		logging.Operation("meeting.cancel"),
		logging.MeetingID(m.ID))
	return result, nil
}

// ListUpcoming returns confirmed meetings starting at or after now, in
// chronological order.
func (s *Scheduler) ListUpcoming(ctx context.Context) ([]*Meeting, error) {
	return s.store.ListUpcomingMeetings(ctx, s.now())
}

func (s *Scheduler) findCancellationTarget(ctx context.Context, req CancelRequest) (*Meeting, error) {
	if req.ID != "" {
		m, err := s.store.GetMeeting(ctx, req.ID)
		if err != nil {
			return nil, fmt.Errorf("meeting lookup failed: %w", err)
		}
		if m == nil || m.Status != StatusConfirmed {
			return nil, &NotFoundError{Query: req.ID}
		}
		return m, nil
	}

	if req.AttendeeName == "" {
		return nil, &InvalidRequestError{Field: "attendee name", Reason: "required when no meeting id is given"}
	}

	confirmed, err := s.store.ListMeetingsByStatus(ctx, StatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("meeting lookup failed: %w", err)
	}

	return matchCancellation(confirmed, req)
}
