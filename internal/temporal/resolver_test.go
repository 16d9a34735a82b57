package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatcal/schedcore/internal/workinghours"
)

func newTestResolver(t *testing.T) (*Resolver, time.Time) {
	t.Helper()
	tz, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	profile, err := workinghours.NewProfile(tz, "09:00", "17:00", "10:30", "16:30", false)
	require.NoError(t, err)

	r := NewResolver(tz, profile, 15*time.Minute, 15*time.Minute, nil)
	// Wednesday, June 11 2025, 10:07 local.
	now := time.Date(2025, 6, 11, 10, 7, 0, 0, tz)
	return r, now
}

func TestResolveImmediate(t *testing.T) {
	r, now := newTestResolver(t)

	res, err := r.Resolve("now", now)
	require.NoError(t, err)

	assert.Equal(t, "immediate", res.Rule)
	assert.True(t, res.ExplicitTime)
	// 10:07 rounds up to the next 15-minute boundary, never the exact second.
	assert.Equal(t, time.Date(2025, 6, 11, 10, 15, 0, 0, now.Location()), res.Start)
}

func TestResolveRelativeDays(t *testing.T) {
	r, now := newTestResolver(t)

	tests := []struct {
		name     string
		input    string
		wantDay  int
		wantHour int
		wantMin  int
		wantRule string
	}{
		{name: "today explicit time", input: "today at 2pm", wantDay: 11, wantHour: 14, wantRule: "relative-today"},
		{name: "tomorrow explicit time", input: "tomorrow at 3pm", wantDay: 12, wantHour: 15, wantRule: "relative-tomorrow"},
		{name: "tomorrow clock minutes", input: "tomorrow at 10:30am", wantDay: 12, wantHour: 10, wantMin: 30, wantRule: "relative-tomorrow"},
		{name: "tonight daypart default", input: "tonight", wantDay: 11, wantHour: 18, wantRule: "relative-today"},
		{name: "tomorrow 24h clock", input: "tomorrow at 15:30", wantDay: 12, wantHour: 15, wantMin: 30, wantRule: "relative-tomorrow"},
		{name: "in two days", input: "in 2 days at 11am", wantDay: 13, wantHour: 11, wantRule: "in-n-units"},
		{name: "explicit beats daypart", input: "tomorrow evening at 9pm", wantDay: 12, wantHour: 21, wantRule: "relative-tomorrow"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Resolve(tt.input, now)
			require.NoError(t, err)

			assert.Equal(t, tt.wantRule, res.Rule)
			assert.False(t, res.EnumerateSlots)
			assert.Equal(t, time.June, res.Start.Month())
			assert.Equal(t, tt.wantDay, res.Start.Day())
			assert.Equal(t, tt.wantHour, res.Start.Hour())
			assert.Equal(t, tt.wantMin, res.Start.Minute())
		})
	}
}

func TestResolveWeekdayNames(t *testing.T) {
	r, now := newTestResolver(t) // Wednesday

	tests := []struct {
		input   string
		wantDay int
	}{
		{input: "friday at 1pm", wantDay: 13},
		{input: "monday at 1pm", wantDay: 16},
		{input: "next friday at 1pm", wantDay: 20},
		{input: "wednesday at 1pm", wantDay: 18}, // same day rolls a week forward
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			res, err := r.Resolve(tt.input, now)
			require.NoError(t, err)
			assert.Equal(t, "weekday-name", res.Rule)
			assert.Equal(t, tt.wantDay, res.Start.Day())
		})
	}
}

func TestResolveSometimeDefersToSlots(t *testing.T) {
	r, now := newTestResolver(t)

	res, err := r.Resolve("sometime friday", now)
	require.NoError(t, err)

	assert.True(t, res.EnumerateSlots)
	assert.True(t, res.Start.IsZero())
	assert.Equal(t, 13, res.Date.Day())
	assert.Equal(t, "weekday-name/enumerate", res.Rule)
}

func TestResolveDayWithoutTimeDefersToSlots(t *testing.T) {
	r, now := newTestResolver(t)

	res, err := r.Resolve("tomorrow", now)
	require.NoError(t, err)

	assert.True(t, res.EnumerateSlots)
	assert.Equal(t, 12, res.Date.Day())
}

func TestGracePeriodBoundary(t *testing.T) {
	r, now := newTestResolver(t)

	// now is 10:07; 9:53 is 14 minutes ago, inside the 15-minute grace window.
	res, err := r.Resolve("today at 9:53am", now)
	require.NoError(t, err)
	assert.True(t, res.Start.Equal(now), "grace-window start must normalize to now")
	assert.Contains(t, res.Rule, "grace-advanced")

	// 9:51 is 16 minutes ago, past the grace window.
	_, err = r.Resolve("today at 9:51am", now)
	var past *PastTimeError
	require.ErrorAs(t, err, &past)
	assert.Equal(t, 9, past.Requested.Hour())
}

func TestResolveYesterdayIsPast(t *testing.T) {
	r, now := newTestResolver(t)

	_, err := r.Resolve("yesterday at 2pm", now)
	var past *PastTimeError
	require.ErrorAs(t, err, &past)
	assert.Equal(t, 10, past.Requested.Day())
}

func TestMeridiemInference(t *testing.T) {
	r, now := newTestResolver(t)

	// "at 3" has no period; 3 AM is outside the 09:00-17:00 weekday window
	// while 3 PM is inside, so the working-hours-consistent reading wins.
	res, err := r.Resolve("tomorrow at 3", now)
	require.NoError(t, err)
	assert.Equal(t, 15, res.Start.Hour())

	// "at 10" reads as morning: 10 AM is inside the window.
	res, err = r.Resolve("tomorrow at 10", now)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Start.Hour())
}

func TestResolveAmbiguous(t *testing.T) {
	r, now := newTestResolver(t)

	for _, input := range []string{"", "whenever works for the vibes", "blorp"} {
		_, err := r.Resolve(input, now)
		var ambiguous *AmbiguousError
		assert.ErrorAs(t, err, &ambiguous, "input %q", input)
	}
}

func TestResolveISODate(t *testing.T) {
	r, now := newTestResolver(t)

	res, err := r.Resolve("2025-07-04 at 11am", now)
	require.NoError(t, err)
	assert.Equal(t, "iso-date", res.Rule)
	assert.Equal(t, time.July, res.Start.Month())
	assert.Equal(t, 4, res.Start.Day())
	assert.Equal(t, 11, res.Start.Hour())
}

func TestResolveMonthDayRollsForward(t *testing.T) {
	r, now := newTestResolver(t) // June 11 2025

	res, err := r.Resolve("january 5 at 10am", now)
	require.NoError(t, err)
	assert.Equal(t, "month-day", res.Rule)
	assert.Equal(t, 2026, res.Start.Year())
	assert.Equal(t, time.January, res.Start.Month())
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
		ok    bool
	}{
		{input: "30 minutes", want: 30 * time.Minute, ok: true},
		{input: "45 mins", want: 45 * time.Minute, ok: true},
		{input: "90m", want: 90 * time.Minute, ok: true},
		{input: "2 hours", want: 2 * time.Hour, ok: true},
		{input: "1.5 hours", want: 90 * time.Minute, ok: true},
		{input: "half an hour", want: 30 * time.Minute, ok: true},
		{input: "an hour", want: time.Hour, ok: true},
		{input: "60", want: time.Hour, ok: true},
		{input: "a while", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseDuration(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
