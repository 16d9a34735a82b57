package meeting

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatcal/schedcore/internal/availability"
	"github.com/chatcal/schedcore/internal/calendar"
	"github.com/chatcal/schedcore/internal/workinghours"
)

type fakeBusyBackend struct {
	busy []availability.TimeWindow
	err  error
}

func (b *fakeBusyBackend) BusyIntervals(context.Context, time.Time, time.Time) ([]availability.TimeWindow, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.busy, nil
}

type fakeEventBackend struct {
	creates   int
	deletes   []string
	createErr error
	deleteErr error
}

func (b *fakeEventBackend) CreateEvent(_ context.Context, in calendar.EventInput) (calendar.CreatedEvent, error) {
	if b.createErr != nil {
		return calendar.CreatedEvent{}, b.createErr
	}
	b.creates++
	out := calendar.CreatedEvent{Handle: "evt-" + in.Start.Format("0102-1504")}
	if in.WantConferencing {
		out.MeetLink = "https://meet.google.com/abc-defg-hij"
	}
	return out, nil
}

func (b *fakeEventBackend) DeleteEvent(_ context.Context, handle string) error {
	if b.deleteErr != nil {
		return b.deleteErr
	}
	b.deletes = append(b.deletes, handle)
	return nil
}

type memMeetingStore struct {
	mu       sync.Mutex
	meetings map[string]*Meeting
}

func newMemMeetingStore() *memMeetingStore {
	return &memMeetingStore{meetings: make(map[string]*Meeting)}
}

func (s *memMeetingStore) SaveMeeting(_ context.Context, m *Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *m
	s.meetings[m.ID] = &clone
	return nil
}

func (s *memMeetingStore) GetMeeting(_ context.Context, id string) (*Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return nil, nil
	}
	clone := *m
	return &clone, nil
}

func (s *memMeetingStore) ListMeetingsByStatus(_ context.Context, status Status) ([]*Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Meeting
	for _, m := range s.meetings {
		if m.Status == status {
			clone := *m
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *memMeetingStore) ListUpcomingMeetings(_ context.Context, from time.Time) ([]*Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Meeting
	for _, m := range s.meetings {
		if m.Status == StatusConfirmed && !m.Start.Before(from) {
			clone := *m
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (s *memMeetingStore) UpdateMeetingStatus(_ context.Context, id string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return errors.New("no such meeting")
	}
	m.Status = status
	return nil
}

type fakeNotifier struct {
	bookings      int
	cancellations int
	err           error
}

func (n *fakeNotifier) SendBookingConfirmation(context.Context, *Meeting) error {
	n.bookings++
	return n.err
}

func (n *fakeNotifier) SendCancellationNotice(context.Context, *Meeting) error {
	n.cancellations++
	return n.err
}

type schedulerFixture struct {
	scheduler *Scheduler
	busy      *fakeBusyBackend
	events    *fakeEventBackend
	store     *memMeetingStore
	notifier  *fakeNotifier
	tz        *time.Location
	now       time.Time
}

func newFixture(t *testing.T) *schedulerFixture {
	t.Helper()
	tz, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	profile, err := workinghours.NewProfile(tz, "09:00", "17:00", "10:30", "16:30", false)
	require.NoError(t, err)

	f := &schedulerFixture{
		busy:     &fakeBusyBackend{},
		events:   &fakeEventBackend{},
		store:    newMemMeetingStore(),
		notifier: &fakeNotifier{},
		tz:       tz,
		now:      time.Date(2025, 6, 11, 10, 7, 0, 0, tz),
	}
	engine := availability.NewEngine(f.busy, profile, 30*time.Minute, time.Second, nil)
	f.scheduler = NewScheduler(engine, f.events, f.store, f.notifier, tz, nil)
	f.scheduler.now = func() time.Time { return f.now }
	return f
}

func (f *schedulerFixture) at(day, hour, minute int) time.Time {
	return time.Date(2025, 6, day, hour, minute, 0, 0, f.tz)
}

func TestEncodeIDDeterminism(t *testing.T) {
	tz, _ := time.LoadLocation("America/New_York")
	start := time.Date(2025, 6, 12, 15, 0, 0, 0, tz)

	assert.Equal(t, "0612-1500-030", EncodeID(start, 30*time.Minute))
	assert.Equal(t, EncodeID(start, 30*time.Minute), EncodeID(start, 30*time.Minute))
	assert.NotEqual(t, EncodeID(start, 30*time.Minute), EncodeID(start, 45*time.Minute))
	assert.NotEqual(t, EncodeID(start, 30*time.Minute), EncodeID(start.Add(time.Minute), 30*time.Minute))
}

func TestBookConflictAndSuccess(t *testing.T) {
	f := newFixture(t)
	// Existing busy interval tomorrow 14:00-14:30.
	f.busy.busy = []availability.TimeWindow{
		{Start: f.at(12, 14, 0), End: f.at(12, 14, 30)},
	}
	attendee := Attendee{Name: "John Smith", Email: "john@example.com"}

	_, err := f.scheduler.Book(context.Background(), BookRequest{
		Start:    f.at(12, 14, 0),
		Duration: 30 * time.Minute,
		Attendee: attendee,
	})
	var conflict *availability.SlotConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Zero(t, f.events.creates, "no calendar mutation on a failed check")

	result, err := f.scheduler.Book(context.Background(), BookRequest{
		Start:            f.at(12, 15, 0),
		Duration:         30 * time.Minute,
		Attendee:         attendee,
		WantConferencing: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "0612-1500-030", result.Meeting.ID)
	assert.Equal(t, StatusConfirmed, result.Meeting.Status)
	assert.NotEmpty(t, result.Meeting.MeetLink)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, 1, f.notifier.bookings)
}

func TestBookOutsideWorkingHours(t *testing.T) {
	f := newFixture(t)

	// Saturday June 14 at 9:00 is before the weekend open of 10:30.
	_, err := f.scheduler.Book(context.Background(), BookRequest{
		Start:    f.at(14, 9, 0),
		Duration: 30 * time.Minute,
		Attendee: Attendee{Name: "John Smith", Email: "john@example.com"},
	})

	var rejected *workinghours.RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "10:30 AM - 4:30 PM", rejected.Window.String())
	assert.Zero(t, f.events.creates)
}

func TestBookRequiresAttendeeContact(t *testing.T) {
	f := newFixture(t)

	_, err := f.scheduler.Book(context.Background(), BookRequest{
		Start:    f.at(12, 15, 0),
		Duration: 30 * time.Minute,
		Attendee: Attendee{Name: "John Smith"},
	})

	var invalid *InvalidRequestError
	require.ErrorAs(t, err, &invalid)
	assert.Zero(t, f.events.creates)
}

func TestBookCalendarUnreachableNeverFree(t *testing.T) {
	f := newFixture(t)
	f.busy.err = errors.New("freebusy timeout")

	_, err := f.scheduler.Book(context.Background(), BookRequest{
		Start:    f.at(12, 15, 0),
		Duration: 30 * time.Minute,
		Attendee: Attendee{Name: "John Smith", Email: "john@example.com"},
	})

	var unavailable *availability.CalendarUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Zero(t, f.events.creates)
}

func TestRebookAfterCancel(t *testing.T) {
	f := newFixture(t)
	req := BookRequest{
		Start:    f.at(12, 15, 0),
		Duration: 30 * time.Minute,
		Attendee: Attendee{Name: "John Smith", Email: "john@example.com"},
	}

	first, err := f.scheduler.Book(context.Background(), req)
	require.NoError(t, err)

	// The same slot is now taken by a confirmed meeting.
	_, err = f.scheduler.Book(context.Background(), req)
	var dup *DuplicateIDError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, first.Meeting.ID, dup.ID)

	_, err = f.scheduler.Cancel(context.Background(), CancelRequest{ID: first.Meeting.ID})
	require.NoError(t, err)

	// No residual lock after cancellation.
	second, err := f.scheduler.Book(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.Meeting.ID, second.Meeting.ID)
}

func TestBookNotificationFailureIsWarning(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("smtp unreachable")

	result, err := f.scheduler.Book(context.Background(), BookRequest{
		Start:    f.at(12, 15, 0),
		Duration: 30 * time.Minute,
		Attendee: Attendee{Name: "John Smith", Email: "john@example.com"},
	})

	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, result.Meeting.Status)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "smtp unreachable")
}

func TestCancelByID(t *testing.T) {
	f := newFixture(t)
	booked, err := f.scheduler.Book(context.Background(), BookRequest{
		Start:    f.at(12, 15, 0),
		Duration: 30 * time.Minute,
		Attendee: Attendee{Name: "John Smith", Email: "john@example.com"},
	})
	require.NoError(t, err)

	result, err := f.scheduler.Cancel(context.Background(), CancelRequest{ID: booked.Meeting.ID})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, result.Meeting.Status)
	assert.Equal(t, []string{booked.Meeting.Handle}, f.events.deletes)
	assert.Equal(t, 1, f.notifier.cancellations)

	// Cancelled is terminal; a second cancel finds nothing.
	_, err = f.scheduler.Cancel(context.Background(), CancelRequest{ID: booked.Meeting.ID})
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestCancelUnknownID(t *testing.T) {
	f := newFixture(t)

	_, err := f.scheduler.Cancel(context.Background(), CancelRequest{ID: "0101-0900-030"})
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestCancelByNameNearestTime(t *testing.T) {
	f := newFixture(t)
	attendee := Attendee{Name: "John Smith", Email: "john@example.com"}
	for _, start := range []time.Time{f.at(12, 10, 0), f.at(12, 15, 0)} {
		_, err := f.scheduler.Book(context.Background(), BookRequest{
			Start: start, Duration: 30 * time.Minute, Attendee: attendee,
		})
		require.NoError(t, err)
	}

	result, err := f.scheduler.Cancel(context.Background(), CancelRequest{
		AttendeeName: "John Smith",
		Around:       f.at(12, 15, 30),
		ExplicitTime: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "0612-1500-030", result.Meeting.ID)

	// The other meeting stays confirmed.
	remaining, err := f.store.GetMeeting(context.Background(), "0612-1000-030")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, remaining.Status)
}

func TestCancelFuzzyNameMatch(t *testing.T) {
	f := newFixture(t)
	_, err := f.scheduler.Book(context.Background(), BookRequest{
		Start:    f.at(12, 15, 0),
		Duration: 30 * time.Minute,
		Attendee: Attendee{Name: "John Smith", Email: "john@example.com"},
	})
	require.NoError(t, err)

	result, err := f.scheduler.Cancel(context.Background(), CancelRequest{
		AttendeeName: "Jon Smith",
		Around:       f.at(12, 15, 0),
		ExplicitTime: true,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, result.Meeting.Status)
}

func TestCancelAmbiguousSameDayNoExplicitTime(t *testing.T) {
	f := newFixture(t)
	attendee := Attendee{Name: "John Smith", Email: "john@example.com"}
	for _, start := range []time.Time{f.at(12, 10, 0), f.at(12, 15, 0)} {
		_, err := f.scheduler.Book(context.Background(), BookRequest{
			Start: start, Duration: 30 * time.Minute, Attendee: attendee,
		})
		require.NoError(t, err)
	}

	_, err := f.scheduler.Cancel(context.Background(), CancelRequest{
		AttendeeName: "John Smith",
		Around:       f.at(12, 0, 0),
	})

	var ambiguous *AmbiguousMatchError
	require.ErrorAs(t, err, &ambiguous)
	assert.Len(t, ambiguous.Candidates, 2)

	// Neither meeting was cancelled.
	for _, id := range []string{"0612-1000-030", "0612-1500-030"} {
		m, err := f.store.GetMeeting(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, m.Status)
	}
	assert.Empty(t, f.events.deletes)
}

func TestCancelNoNameMatch(t *testing.T) {
	f := newFixture(t)
	_, err := f.scheduler.Book(context.Background(), BookRequest{
		Start:    f.at(12, 15, 0),
		Duration: 30 * time.Minute,
		Attendee: Attendee{Name: "John Smith", Email: "john@example.com"},
	})
	require.NoError(t, err)

	_, err = f.scheduler.Cancel(context.Background(), CancelRequest{
		AttendeeName: "Alice Cooper",
		Around:       f.at(12, 15, 0),
		ExplicitTime: true,
	})
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestCancelToleratesEventAlreadyDeleted(t *testing.T) {
	f := newFixture(t)
	booked, err := f.scheduler.Book(context.Background(), BookRequest{
		Start:    f.at(12, 15, 0),
		Duration: 30 * time.Minute,
		Attendee: Attendee{Name: "John Smith", Email: "john@example.com"},
	})
	require.NoError(t, err)

	f.events.deleteErr = calendar.ErrEventNotFound
	result, err := f.scheduler.Cancel(context.Background(), CancelRequest{ID: booked.Meeting.ID})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, result.Meeting.Status)
}

func TestListUpcoming(t *testing.T) {
	f := newFixture(t)
	attendee := Attendee{Name: "John Smith", Email: "john@example.com"}
	for _, start := range []time.Time{f.at(13, 11, 0), f.at(12, 15, 0)} {
		_, err := f.scheduler.Book(context.Background(), BookRequest{
			Start: start, Duration: 30 * time.Minute, Attendee: attendee,
		})
		require.NoError(t, err)
	}

	upcoming, err := f.scheduler.ListUpcoming(context.Background())
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	assert.Equal(t, "0612-1500-030", upcoming[0].ID)
	assert.Equal(t, "0613-1100-030", upcoming[1].ID)
}

func TestNamesMatch(t *testing.T) {
	tests := []struct {
		candidate string
		query     string
		want      bool
	}{
		{"John Smith", "John Smith", true},
		{"John Smith", "john smith", true},
		{"John Smith", "Jon Smith", true},
		{"John Smith", "John", true},
		{"John Smith", "Smith", true},
		{"John Smith", "Alice Cooper", false},
		{"John Smith", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, namesMatch(tt.candidate, tt.query))
		})
	}
}
