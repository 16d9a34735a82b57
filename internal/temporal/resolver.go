package temporal

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/chatcal/schedcore/internal/logging"
	"github.com/chatcal/schedcore/internal/workinghours"
)

// AmbiguousError reports a date/time fragment no resolution rule could handle.
// The resolver never guesses: unresolvable input surfaces this error.
type AmbiguousError struct {
	Fragment string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("cannot resolve date/time expression %q", e.Fragment)
}

// PastTimeError reports a resolved instant earlier than now minus the grace period.
type PastTimeError struct {
	Requested time.Time
	Now       time.Time
}

func (e *PastTimeError) Error() string {
	return fmt.Sprintf("requested time %s is in the past",
		e.Requested.Format("Mon Jan 2 3:04 PM"))
}

// Resolution is the concrete outcome of resolving a free-text fragment.
type Resolution struct {
	// Start is the resolved instant in the scheduling timezone.
	// Zero when EnumerateSlots is set.
	Start time.Time

	// Date is the resolved calendar date (midnight, scheduling timezone).
	Date time.Time

	// ExplicitTime reports whether the fragment carried a usable time of
	// day (a clock time or a daypart default), as opposed to deferring to
	// slot enumeration.
	ExplicitTime bool

	// EnumerateSlots is set when the fragment names a day but no usable
	// time ("sometime friday"); the caller should enumerate free slots
	// instead of guessing one.
	EnumerateSlots bool

	// Rule names the resolution rule that matched, for logging and audit.
	Rule string
}

// Resolver turns natural-language date/time fragments into concrete instants.
// Rules are tried in a fixed order; the first match wins and is recorded on
// the resolution.
type Resolver struct {
	tz          *time.Location
	profile     *workinghours.Profile
	grace       time.Duration
	granularity time.Duration
	logger      *slog.Logger
}

// NewResolver builds a resolver. The working-hours profile drives AM/PM
// inference for bare clock hours.
func NewResolver(tz *time.Location, profile *workinghours.Profile, grace, granularity time.Duration, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		tz:          tz,
		profile:     profile,
		grace:       grace,
		granularity: granularity,
		logger:      logger,
	}
}

// Timezone returns the scheduling timezone the resolver operates in.
func (r *Resolver) Timezone() *time.Location { return r.tz }

var (
	clockRe    = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\s*(am|pm)?\b`)
	hourRe     = regexp.MustCompile(`\b(\d{1,2})\s*(am|pm)\b`)
	bareHourRe = regexp.MustCompile(`\bat\s+(\d{1,2})\b`)
	inUnitsRe  = regexp.MustCompile(`\bin\s+(\d+)\s+(day|week)s?\b`)
	isoDateRe  = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	monthDayRe = regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|oct|nov|dec)\s+(\d{1,2})\b`)
)

var weekdays = map[string]time.Weekday{
	"monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday, "sunday": time.Sunday,
}

// Daypart defaults, used when a fragment names a part of day but no clock time.
var dayparts = []struct {
	keyword string
	hour    int
}{
	{"tonight", 18},
	{"evening", 18},
	{"afternoon", 14},
	{"morning", 9},
	{"noon", 12},
}

// Resolve parses text against now, which must already be in the scheduling
// timezone. Unresolvable fragments yield *AmbiguousError; instants earlier
// than now minus the grace period yield *PastTimeError. Instants inside the
// grace window are silently advanced to now.
func (r *Resolver) Resolve(text string, now time.Time) (Resolution, error) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return Resolution{}, &AmbiguousError{Fragment: text}
	}
	now = now.In(r.tz)

	// "now" asks for the next practical instant, not the exact second: round
	// up so the slot has not already elapsed by the time the request lands.
	if normalized == "now" || normalized == "asap" || normalized == "right now" {
		res := Resolution{
			Start:        roundUp(now, r.granularity),
			Date:         midnight(now),
			ExplicitTime: true,
			Rule:         "immediate",
		}
		r.logger.Debug("resolved temporal expression", logging.Rule(res.Rule))
		return res, nil
	}

	date, dateRule, ok := r.resolveDate(normalized, now)

	hour, minute, explicit := r.resolveTime(normalized, date)
	if !ok {
		if !explicit {
			return Resolution{}, &AmbiguousError{Fragment: text}
		}
		// A clock time with no date fragment means today.
		date, dateRule = midnight(now), "time-only-today"
	}

	if !explicit {
		// A day with no usable time defers to slot enumeration.
		res := Resolution{
			Date:           date,
			EnumerateSlots: true,
			Rule:           dateRule + "/enumerate",
		}
		r.logger.Debug("resolved temporal expression", logging.Rule(res.Rule))
		return res, nil
	}

	start := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, r.tz)

	if start.Before(now) {
		if now.Sub(start) > r.grace {
			return Resolution{}, &PastTimeError{Requested: start, Now: now}
		}
		// Inside the grace window: treat the request as "now".
		start = now
		dateRule += "/grace-advanced"
	}

	res := Resolution{
		Start:        start,
		Date:         midnight(start),
		ExplicitTime: true,
		Rule:         dateRule,
	}
	r.logger.Debug("resolved temporal expression", logging.Rule(res.Rule))
	return res, nil
}

// resolveDate applies the ordered date rules. The returned date is midnight
// in the scheduling timezone.
func (r *Resolver) resolveDate(text string, now time.Time) (time.Time, string, bool) {
	today := midnight(now)

	type dateRule struct {
		name  string
		apply func() (time.Time, bool)
	}

	rules := []dateRule{
		{"relative-today", func() (time.Time, bool) {
			for _, kw := range []string{"today", "tonight", "this morning", "this afternoon", "this evening"} {
				if strings.Contains(text, kw) {
					return today, true
				}
			}
			return time.Time{}, false
		}},
		{"relative-tomorrow", func() (time.Time, bool) {
			if strings.Contains(text, "tomorrow") {
				return today.AddDate(0, 0, 1), true
			}
			return time.Time{}, false
		}},
		{"relative-yesterday", func() (time.Time, bool) {
			// Resolves so the past-time check can reject it with a clear error.
			if strings.Contains(text, "yesterday") {
				return today.AddDate(0, 0, -1), true
			}
			return time.Time{}, false
		}},
		{"in-n-units", func() (time.Time, bool) {
			m := inUnitsRe.FindStringSubmatch(text)
			if m == nil {
				return time.Time{}, false
			}
			n, _ := strconv.Atoi(m[1])
			if m[2] == "week" {
				n *= 7
			}
			return today.AddDate(0, 0, n), true
		}},
		{"next-week", func() (time.Time, bool) {
			if !strings.Contains(text, "next week") {
				return time.Time{}, false
			}
			days := (int(time.Monday) - int(now.Weekday()) + 7) % 7
			if days == 0 {
				days = 7
			}
			return today.AddDate(0, 0, days), true
		}},
		{"weekday-name", func() (time.Time, bool) {
			return r.weekdayMatch(text, now)
		}},
		{"iso-date", func() (time.Time, bool) {
			m := isoDateRe.FindStringSubmatch(text)
			if m == nil {
				return time.Time{}, false
			}
			y, _ := strconv.Atoi(m[1])
			mo, _ := strconv.Atoi(m[2])
			d, _ := strconv.Atoi(m[3])
			return time.Date(y, time.Month(mo), d, 0, 0, 0, 0, r.tz), true
		}},
		{"month-day", func() (time.Time, bool) {
			m := monthDayRe.FindStringSubmatch(text)
			if m == nil {
				return time.Time{}, false
			}
			month, ok := monthByName(m[1])
			if !ok {
				return time.Time{}, false
			}
			d, _ := strconv.Atoi(m[2])
			candidate := time.Date(now.Year(), month, d, 0, 0, 0, 0, r.tz)
			if candidate.Before(today) {
				candidate = candidate.AddDate(1, 0, 0)
			}
			return candidate, true
		}},
	}

	for _, rule := range rules {
		if date, ok := rule.apply(); ok {
			return date, rule.name, true
		}
	}
	return time.Time{}, "", false
}

// weekdayMatch resolves a named weekday to its next occurrence. "next" or a
// same-day mention pushes a full week out, so the result is always future.
func (r *Resolver) weekdayMatch(text string, now time.Time) (time.Time, bool) {
	for name, wd := range weekdays {
		if !strings.Contains(text, name) {
			continue
		}
		days := (int(wd) - int(now.Weekday()) + 7) % 7
		if days == 0 || strings.Contains(text, "next "+name) {
			days += 7
		}
		return midnight(now).AddDate(0, 0, days), true
	}
	return time.Time{}, false
}

// resolveTime extracts a clock time or daypart default from the fragment.
// Explicit clock times take precedence over daypart keywords.
func (r *Resolver) resolveTime(text string, date time.Time) (hour, minute int, explicit bool) {
	if strings.Contains(text, "sometime") || strings.Contains(text, "anytime") || strings.Contains(text, "any time") {
		return 0, 0, false
	}

	if m := clockRe.FindStringSubmatch(text); m != nil {
		hour, _ = strconv.Atoi(m[1])
		minute, _ = strconv.Atoi(m[2])
		if hour <= 23 && minute <= 59 {
			if m[3] != "" {
				hour = to24Hour(hour, m[3])
			} else if hour <= 12 {
				hour = r.inferMeridiem(hour, date)
			}
			return hour, minute, true
		}
	}

	if m := hourRe.FindStringSubmatch(text); m != nil {
		hour, _ = strconv.Atoi(m[1])
		if hour >= 1 && hour <= 12 {
			return to24Hour(hour, m[2]), 0, true
		}
	}

	if m := bareHourRe.FindStringSubmatch(text); m != nil {
		hour, _ = strconv.Atoi(m[1])
		if hour <= 23 {
			if hour <= 12 {
				hour = r.inferMeridiem(hour, date)
			}
			return hour, 0, true
		}
	}

	for _, dp := range dayparts {
		if strings.Contains(text, dp.keyword) {
			return dp.hour, 0, true
		}
	}

	return 0, 0, false
}

// inferMeridiem picks the AM/PM reading of a bare hour that is consistent
// with working hours on the target date. When both or neither reading fits,
// business convention applies: 8-12 reads as given, 1-7 reads as afternoon.
func (r *Resolver) inferMeridiem(hour int, date time.Time) int {
	if hour == 12 || hour > 12 {
		return hour
	}
	am := time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, r.tz)
	pm := am.Add(12 * time.Hour)

	amFits := r.profile != nil && r.profile.Validate(am, 0) == nil
	pmFits := r.profile != nil && r.profile.Validate(pm, 0) == nil

	switch {
	case amFits && !pmFits:
		return hour
	case pmFits && !amFits:
		return hour + 12
	case hour >= 8:
		return hour
	default:
		return hour + 12
	}
}

// ParseDuration extracts a meeting duration from free text. The zero value
// with ok=false means no duration was mentioned.
func ParseDuration(text string) (time.Duration, bool) {
	text = strings.ToLower(strings.TrimSpace(text))

	if strings.Contains(text, "half an hour") || strings.Contains(text, "half hour") {
		return 30 * time.Minute, true
	}
	if m := regexp.MustCompile(`(\d+(?:\.\d+)?)\s*h(?:ou)?rs?\b`).FindStringSubmatch(text); m != nil {
		hours, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return time.Duration(hours * float64(time.Hour)), true
		}
	}
	if m := regexp.MustCompile(`(\d+)\s*m(?:in(?:ute)?s?)?\b`).FindStringSubmatch(text); m != nil {
		minutes, err := strconv.Atoi(m[1])
		if err == nil {
			return time.Duration(minutes) * time.Minute, true
		}
	}
	if strings.Contains(text, "an hour") || text == "hour" {
		return time.Hour, true
	}
	if m := regexp.MustCompile(`^(\d+)$`).FindStringSubmatch(text); m != nil {
		minutes, _ := strconv.Atoi(m[1])
		return time.Duration(minutes) * time.Minute, true
	}
	return 0, false
}

func to24Hour(hour int, period string) int {
	if period == "pm" && hour != 12 {
		return hour + 12
	}
	if period == "am" && hour == 12 {
		return 0
	}
	return hour
}

func monthByName(name string) (time.Month, bool) {
	for m := time.January; m <= time.December; m++ {
		full := strings.ToLower(m.String())
		if name == full || name == full[:3] {
			return m, true
		}
	}
	return 0, false
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func roundUp(t time.Time, granularity time.Duration) time.Time {
	rounded := t.Truncate(granularity)
	if rounded.Before(t) {
		rounded = rounded.Add(granularity)
	}
	return rounded
}
