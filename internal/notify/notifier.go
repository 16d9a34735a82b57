// Package notify dispatches booking and cancellation notices. Delivery is
// owned by an upstream collaborator; this package provides the log-backed
// implementation used when no mail transport is configured, so lifecycle
// events always leave an audit trail.
package notify

import (
	"context"
	"log/slog"

	"github.com/chatcal/schedcore/internal/logging"
	"github.com/chatcal/schedcore/internal/meeting"
)

// LogNotifier records confirmations in the structured log instead of sending
// them. It never fails, so bookings made without a mail transport complete
// without warnings.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier writing to the given logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendBookingConfirmation(_ context.Context, m *meeting.Meeting) error {
	n.logger.Info("booking confirmation",
		logging.Operation("notify.booking"),
		logging.MeetingID(m.ID),
		logging.UserHash(m.Attendee.Email),
		slog.Time("start", m.Start),
		slog.String("meet_link", m.MeetLink))
	return nil
}

func (n *LogNotifier) SendCancellationNotice(_ context.Context, m *meeting.Meeting) error {
	n.logger.Info("cancellation notice",
		logging.Operation("notify.cancel"),
		logging.MeetingID(m.ID),
		logging.UserHash(m.Attendee.Email))
	return nil
}
