package calendar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	calendar "google.golang.org/api/calendar/v3"
)

func TestMeetLink(t *testing.T) {
	tests := []struct {
		name  string
		event *calendar.Event
		want  string
	}{
		{
			name:  "hangout link preferred",
			event: &calendar.Event{HangoutLink: "https://meet.google.com/abc-defg-hij"},
			want:  "https://meet.google.com/abc-defg-hij",
		},
		{
			name: "video entry point",
			event: &calendar.Event{
				ConferenceData: &calendar.ConferenceData{
					EntryPoints: []*calendar.EntryPoint{
						{EntryPointType: "phone", Uri: "tel:+1-555-0100"},
						{EntryPointType: "video", Uri: "https://meet.google.com/xyz"},
					},
				},
			},
			want: "https://meet.google.com/xyz",
		},
		{
			name:  "no conference data",
			event: &calendar.Event{},
			want:  "",
		},
		{
			name: "no video entry point",
			event: &calendar.Event{
				ConferenceData: &calendar.ConferenceData{
					EntryPoints: []*calendar.EntryPoint{
						{EntryPointType: "phone", Uri: "tel:+1-555-0100"},
					},
				},
			},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, meetLink(tt.event))
		})
	}
}
