package scheduling_tools

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chatcal/schedcore/internal/availability"
	"github.com/chatcal/schedcore/internal/meeting"
	"github.com/chatcal/schedcore/internal/temporal"
)

func TestParseDurationArg(t *testing.T) {
	tests := []struct {
		name     string
		args     map[string]interface{}
		expected time.Duration
	}{
		{
			name:     "no duration defaults to 30 minutes",
			args:     map[string]interface{}{},
			expected: 30 * time.Minute,
		},
		{
			name:     "natural language",
			args:     map[string]interface{}{"duration": "an hour"},
			expected: time.Hour,
		},
		{
			name:     "minutes string",
			args:     map[string]interface{}{"duration": "45 minutes"},
			expected: 45 * time.Minute,
		},
		{
			name:     "numeric minutes",
			args:     map[string]interface{}{"duration": float64(90)},
			expected: 90 * time.Minute,
		},
		{
			name:     "unparseable falls back to default",
			args:     map[string]interface{}{"duration": "whenever"},
			expected: 30 * time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseDurationArg(tt.args))
		})
	}
}

func TestDescribeErrorActionableDetail(t *testing.T) {
	tz, _ := time.LoadLocation("America/New_York")
	start := time.Date(2025, 6, 12, 15, 0, 0, 0, tz)

	conflict := &availability.SlotConflictError{
		Requested: availability.Slot{Start: start, Duration: 30 * time.Minute},
		Conflict: availability.TimeWindow{
			Start: start,
			End:   start.Add(30 * time.Minute),
		},
	}
	assert.Contains(t, describeError(conflict), "scheduling_check_availability")

	ambiguous := &meeting.AmbiguousMatchError{Candidates: []*meeting.Meeting{
		{ID: "0612-1000-030"}, {ID: "0612-1500-030"},
	}}
	msg := describeError(ambiguous)
	assert.Contains(t, msg, "0612-1000-030")
	assert.Contains(t, msg, "nothing was cancelled")

	past := &temporal.PastTimeError{Requested: start, Now: start.Add(time.Hour)}
	assert.Contains(t, describeError(past), "future time")

	plain := errors.New("boom")
	assert.Equal(t, "boom", describeError(plain))
}

func TestFailureStatusClassification(t *testing.T) {
	assert.Equal(t, "error", bookingFailureStatus(&availability.CalendarUnavailableError{Err: errors.New("timeout")}))
	assert.Equal(t, "rejected", bookingFailureStatus(&meeting.DuplicateIDError{ID: "0612-1500-030"}))

	assert.Equal(t, "not_found", cancellationFailureStatus(&meeting.NotFoundError{Query: "john"}))
	assert.Equal(t, "ambiguous", cancellationFailureStatus(&meeting.AmbiguousMatchError{}))
	assert.Equal(t, "error", cancellationFailureStatus(errors.New("boom")))
}
