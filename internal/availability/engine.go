package availability

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sort"
	"time"

	"github.com/chatcal/schedcore/internal/logging"
	"github.com/chatcal/schedcore/internal/workinghours"
)

// TimeWindow is a half-open [Start, End) interval.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open intervals intersect.
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

// Slot is a candidate start instant plus duration.
type Slot struct {
	Start    time.Time
	Duration time.Duration
}

// End returns the slot's end instant.
func (s Slot) End() time.Time { return s.Start.Add(s.Duration) }

// Backend supplies busy intervals from the calendar. Implementations must
// report unreachability as an error, never as an empty result.
type Backend interface {
	BusyIntervals(ctx context.Context, from, to time.Time) ([]TimeWindow, error)
}

// CalendarUnavailableError reports that the backend could not be consulted.
// Availability and reachability are distinct signals: a failed or timed-out
// lookup is never treated as "free".
type CalendarUnavailableError struct {
	Err error
}

func (e *CalendarUnavailableError) Error() string {
	return fmt.Sprintf("calendar backend unavailable: %v", e.Err)
}

func (e *CalendarUnavailableError) Unwrap() error { return e.Err }

// SlotConflictError reports a requested interval overlapping an existing busy interval.
type SlotConflictError struct {
	Requested Slot
	Conflict  TimeWindow
}

func (e *SlotConflictError) Error() string {
	return fmt.Sprintf("requested slot %s (%s) conflicts with a busy interval %s - %s",
		e.Requested.Start.Format("Mon Jan 2 3:04 PM"),
		e.Requested.Duration,
		e.Conflict.Start.Format("3:04 PM"),
		e.Conflict.End.Format("3:04 PM"))
}

// Engine computes free/busy answers and candidate slots against the backend.
type Engine struct {
	backend     Backend
	profile     *workinghours.Profile
	granularity time.Duration
	timeout     time.Duration
	logger      *slog.Logger
}

// NewEngine builds an availability engine. Granularity sets candidate slot
// spacing; timeout bounds each backend query.
func NewEngine(backend Backend, profile *workinghours.Profile, granularity, timeout time.Duration, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Engine{
		backend:     backend,
		profile:     profile,
		granularity: granularity,
		timeout:     timeout,
		logger:      logger,
	}
}

// CheckConflicts verifies the requested interval is fully disjoint from every
// busy interval on its day. Returns *SlotConflictError on overlap and
// *CalendarUnavailableError when the backend cannot answer.
func (e *Engine) CheckConflicts(ctx context.Context, start time.Time, duration time.Duration) error {
	requested := Slot{Start: start, Duration: duration}
	busy, err := e.busyForDay(ctx, start)
	if err != nil {
		return err
	}

	interval := TimeWindow{Start: start, End: requested.End()}
	for _, b := range busy {
		if interval.Overlaps(b) {
			return &SlotConflictError{Requested: requested, Conflict: b}
		}
	}
	return nil
}

// CheckBookable confirms the interval is simultaneously inside the
// working-hours window and free of conflicts.
func (e *Engine) CheckBookable(ctx context.Context, start time.Time, duration time.Duration) error {
	if err := e.profile.Validate(start, duration); err != nil {
		return err
	}
	return e.CheckConflicts(ctx, start, duration)
}

// SlotsOn enumerates candidate free slots on the given date, in chronological
// order at the engine granularity, covering only gaps between busy intervals
// inside the working-hours window. The returned sequence is lazy, finite and
// restartable. Slots starting before now are skipped.
func (e *Engine) SlotsOn(ctx context.Context, date time.Time, duration time.Duration, now time.Time) (iter.Seq[Slot], error) {
	tz := e.profile.Timezone()
	window := e.profile.WindowFor(date.In(tz))
	if window.Closed() {
		return func(func(Slot) bool) {}, nil
	}

	open := time.Date(date.Year(), date.Month(), date.Day(), window.Open.Hour(), window.Open.Minute(), 0, 0, tz)
	close := time.Date(date.Year(), date.Month(), date.Day(), window.Close.Hour(), window.Close.Minute(), 0, 0, tz)

	busy, err := e.busyBetween(ctx, open, close)
	if err != nil {
		return nil, err
	}

	granularity := e.granularity
	return func(yield func(Slot) bool) {
		for start := open; !start.Add(duration).After(close); start = start.Add(granularity) {
			if start.Before(now) {
				continue
			}
			slot := Slot{Start: start, Duration: duration}
			if conflictsAny(TimeWindow{Start: slot.Start, End: slot.End()}, busy) {
				continue
			}
			if !yield(slot) {
				return
			}
		}
	}, nil
}

// busyForDay fetches busy intervals covering the full local day of t.
func (e *Engine) busyForDay(ctx context.Context, t time.Time) ([]TimeWindow, error) {
	tz := e.profile.Timezone()
	local := t.In(tz)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tz)
	return e.busyBetween(ctx, dayStart, dayStart.AddDate(0, 0, 1))
}

func (e *Engine) busyBetween(ctx context.Context, from, to time.Time) ([]TimeWindow, error) {
	queryCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	busy, err := e.backend.BusyIntervals(queryCtx, from, to)
	if err != nil {
		e.logger.Warn("busy interval lookup failed",
			logging.Operation("availability.busy"), logging.Err(err))
		return nil, &CalendarUnavailableError{Err: err}
	}

	sort.Slice(busy, func(i, j int) bool { return busy[i].Start.Before(busy[j].Start) })
	return mergeWindows(busy), nil
}

func conflictsAny(interval TimeWindow, busy []TimeWindow) bool {
	for _, b := range busy {
		if interval.Overlaps(b) {
			return true
		}
	}
	return false
}

// mergeWindows coalesces overlapping or touching intervals. Input must be
// sorted by start.
func mergeWindows(windows []TimeWindow) []TimeWindow {
	if len(windows) < 2 {
		return windows
	}
	merged := windows[:1]
	for _, w := range windows[1:] {
		last := &merged[len(merged)-1]
		if !w.Start.After(last.End) {
			if w.End.After(last.End) {
				last.End = w.End
			}
			continue
		}
		merged = append(merged, w)
	}
	return merged
}
