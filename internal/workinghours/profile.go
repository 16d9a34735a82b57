package workinghours

import (
	"fmt"
	"time"
)

// DayCategory distinguishes weekday from weekend windows.
type DayCategory string

const (
	Weekday DayCategory = "weekday"
	Weekend DayCategory = "weekend"
)

// TimeOfDay is a clock time as minutes since midnight in the profile timezone.
type TimeOfDay int

// ParseTimeOfDay parses an "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time of day %q out of range", s)
	}
	return TimeOfDay(hour*60 + minute), nil
}

// Hour returns the hour component.
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component.
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// String formats the time 12-hour style, e.g. "4:30 PM".
func (t TimeOfDay) String() string {
	hour := t.Hour()
	period := "AM"
	switch {
	case hour == 0:
		hour = 12
	case hour == 12:
		period = "PM"
	case hour > 12:
		hour -= 12
		period = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", hour, t.Minute(), period)
}

// Window is an open interval of a single day category.
// Equal Open and Close bounds mean the category is unavailable.
type Window struct {
	Category DayCategory
	Open     TimeOfDay
	Close    TimeOfDay
}

// Closed reports whether the window admits no time at all.
func (w Window) Closed() bool { return w.Open == w.Close }

// String renders the window bounds for user-facing rejection detail.
func (w Window) String() string {
	if w.Closed() {
		return fmt.Sprintf("closed on %ss", w.Category)
	}
	return fmt.Sprintf("%s - %s", w.Open, w.Close)
}

// RejectedError reports a start instant outside the working-hours window.
// It always carries the exact bounds for the offending day category so the
// caller can offer alternatives.
type RejectedError struct {
	Start  time.Time
	Window Window
}

func (e *RejectedError) Error() string {
	if e.Window.Closed() {
		return fmt.Sprintf("%s is outside working hours: %s",
			e.Start.Format("Mon Jan 2 3:04 PM"), e.Window)
	}
	return fmt.Sprintf("%s is outside working hours: %s hours are %s",
		e.Start.Format("Mon Jan 2 3:04 PM"), e.Window.Category, e.Window)
}

// Profile holds per-day-category working-hours windows in a fixed timezone.
type Profile struct {
	weekday  Window
	weekend  Window
	timezone *time.Location

	// enforceEnd additionally requires start+duration to fit before close.
	enforceEnd bool
}

// NewProfile builds a profile from "HH:MM" bounds.
// Open must not be later than close for either category.
func NewProfile(tz *time.Location, weekdayOpen, weekdayClose, weekendOpen, weekendClose string, enforceEnd bool) (*Profile, error) {
	parse := func(category DayCategory, open, close string) (Window, error) {
		o, err := ParseTimeOfDay(open)
		if err != nil {
			return Window{}, err
		}
		c, err := ParseTimeOfDay(close)
		if err != nil {
			return Window{}, err
		}
		if o > c {
			return Window{}, fmt.Errorf("%s window inverted: open %s after close %s", category, o, c)
		}
		return Window{Category: category, Open: o, Close: c}, nil
	}

	wd, err := parse(Weekday, weekdayOpen, weekdayClose)
	if err != nil {
		return nil, err
	}
	we, err := parse(Weekend, weekendOpen, weekendClose)
	if err != nil {
		return nil, err
	}

	return &Profile{weekday: wd, weekend: we, timezone: tz, enforceEnd: enforceEnd}, nil
}

// Timezone returns the profile timezone.
func (p *Profile) Timezone() *time.Location { return p.timezone }

// WindowFor returns the window governing the given instant's day category.
func (p *Profile) WindowFor(t time.Time) Window {
	switch t.In(p.timezone).Weekday() {
	case time.Saturday, time.Sunday:
		return p.weekend
	default:
		return p.weekday
	}
}

// Validate checks a start instant (and, when end enforcement is on, its end)
// against the profile. Start boundary is inclusive, close boundary exclusive.
func (p *Profile) Validate(start time.Time, duration time.Duration) error {
	local := start.In(p.timezone)
	window := p.WindowFor(local)
	tod := TimeOfDay(local.Hour()*60 + local.Minute())

	if window.Closed() || tod < window.Open || tod >= window.Close {
		return &RejectedError{Start: local, Window: window}
	}

	if p.enforceEnd {
		end := tod + TimeOfDay(duration/time.Minute)
		if end > window.Close {
			return &RejectedError{Start: local, Window: window}
		}
	}

	return nil
}

// Contains reports whether an entire [start, start+duration) interval sits
// inside the window for that day, regardless of end enforcement.
func (p *Profile) Contains(start time.Time, duration time.Duration) bool {
	local := start.In(p.timezone)
	window := p.WindowFor(local)
	if window.Closed() {
		return false
	}
	tod := TimeOfDay(local.Hour()*60 + local.Minute())
	end := tod + TimeOfDay(duration/time.Minute)
	return tod >= window.Open && end <= window.Close
}
