package scheduling_tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/chatcal/schedcore/internal/availability"
	"github.com/chatcal/schedcore/internal/credentials"
	"github.com/chatcal/schedcore/internal/meeting"
	"github.com/chatcal/schedcore/internal/server"
	"github.com/chatcal/schedcore/internal/temporal"
	"github.com/chatcal/schedcore/internal/workinghours"
)

const maxListedSlots = 10

// RegisterSchedulingTools registers the booking, cancellation and
// availability tools with the MCP server.
func RegisterSchedulingTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	bookTool := mcp.NewTool("scheduling_book_meeting",
		mcp.WithDescription("Book a meeting at a natural-language date/time (e.g. 'tomorrow at 2pm', 'next friday morning')"),
		mcp.WithString("when",
			mcp.Required(),
			mcp.Description("Natural-language date/time for the meeting"),
		),
		mcp.WithString("duration",
			mcp.Description("Meeting duration (e.g. '30 minutes', 'an hour'; default: 30 minutes)"),
		),
		mcp.WithString("title",
			mcp.Description("Meeting title (default: 'Meeting with <attendee>')"),
		),
		mcp.WithString("attendeeName",
			mcp.Required(),
			mcp.Description("Attendee's name"),
		),
		mcp.WithString("attendeeEmail",
			mcp.Description("Attendee's email address (email or phone required)"),
		),
		mcp.WithString("attendeePhone",
			mcp.Description("Attendee's phone number (email or phone required)"),
		),
		mcp.WithBoolean("conferencing",
			mcp.Description("Attach a Google Meet link (default: true)"),
		),
	)
	s.AddTool(bookTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleBookMeeting(ctx, request, sc)
	})

	cancelTool := mcp.NewTool("scheduling_cancel_meeting",
		mcp.WithDescription("Cancel a booked meeting by ID, or by attendee name plus approximate date/time"),
		mcp.WithString("meetingId",
			mcp.Description("Meeting ID from the booking confirmation (e.g. '0612-1500-030')"),
		),
		mcp.WithString("attendeeName",
			mcp.Description("Attendee name to match when no ID is given"),
		),
		mcp.WithString("when",
			mcp.Description("Approximate date/time of the meeting to cancel"),
		),
	)
	s.AddTool(cancelTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleCancelMeeting(ctx, request, sc)
	})

	availabilityTool := mcp.NewTool("scheduling_check_availability",
		mcp.WithDescription("Check whether a date/time is bookable, or list free slots for a day"),
		mcp.WithString("when",
			mcp.Required(),
			mcp.Description("Natural-language date/time ('tomorrow at 2pm') or day ('sometime friday')"),
		),
		mcp.WithString("duration",
			mcp.Description("Desired duration (default: 30 minutes)"),
		),
	)
	s.AddTool(availabilityTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleCheckAvailability(ctx, request, sc)
	})

	listTool := mcp.NewTool("scheduling_list_meetings",
		mcp.WithDescription("List upcoming confirmed meetings"),
	)
	s.AddTool(listTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListMeetings(ctx, sc)
	})

	return nil
}

func handleBookMeeting(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	started := time.Now()
	args := request.GetArguments()

	whenStr, ok := args["when"].(string)
	if !ok || whenStr == "" {
		return mcp.NewToolResultError("when is required"), nil
	}
	name, ok := args["attendeeName"].(string)
	if !ok || name == "" {
		return mcp.NewToolResultError("attendeeName is required"), nil
	}
	email, _ := args["attendeeEmail"].(string)
	phone, _ := args["attendeePhone"].(string)
	title, _ := args["title"].(string)

	conferencing := true
	if v, ok := args["conferencing"].(bool); ok {
		conferencing = v
	}

	duration := parseDurationArg(args)

	now := time.Now().In(sc.Resolver().Timezone())
	res, err := sc.Resolver().Resolve(whenStr, now)
	if err != nil {
		sc.Metrics().RecordBooking(ctx, "rejected")
		return mcp.NewToolResultError(describeError(err)), nil
	}
	sc.Metrics().RecordTemporalResolution(ctx, res.Rule)

	if res.EnumerateSlots {
		// No usable time; offer slots instead of guessing one.
		text, err := renderSlots(ctx, sc, res.Date, duration, now)
		if err != nil {
			sc.Metrics().RecordBooking(ctx, "error")
			return mcp.NewToolResultError(describeError(err)), nil
		}
		return mcp.NewToolResultText("No specific time given. " + text), nil
	}

	result, err := sc.Scheduler().Book(ctx, meeting.BookRequest{
		Title:            title,
		Start:            res.Start,
		Duration:         duration,
		Attendee:         meeting.Attendee{Name: name, Email: email, Phone: phone},
		WantConferencing: conferencing,
	})
	if err != nil {
		sc.Metrics().RecordBooking(ctx, bookingFailureStatus(err))
		sc.Metrics().RecordToolInvocation(ctx, "scheduling_book_meeting", "error", time.Since(started))
		return mcp.NewToolResultError(describeError(err)), nil
	}

	sc.Metrics().RecordBooking(ctx, "confirmed")
	sc.Metrics().RecordToolInvocation(ctx, "scheduling_book_meeting", "success", time.Since(started))

	m := result.Meeting
	var b strings.Builder
	fmt.Fprintf(&b, "Meeting booked.\n\nID: %s\nTitle: %s\nWhen: %s (%s)\nAttendee: %s\n",
		m.ID, m.Title, m.Start.Format("Monday, January 2 at 3:04 PM"), m.Duration, m.Attendee.Name)
	if m.MeetLink != "" {
		fmt.Fprintf(&b, "Meet link: %s\n", m.MeetLink)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(&b, "\nWarning: %s\n", w)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func handleCancelMeeting(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	started := time.Now()
	args := request.GetArguments()

	id, _ := args["meetingId"].(string)
	name, _ := args["attendeeName"].(string)
	whenStr, _ := args["when"].(string)

	if id == "" && name == "" {
		return mcp.NewToolResultError("meetingId or attendeeName is required"), nil
	}

	req := meeting.CancelRequest{ID: id, AttendeeName: name}
	if id == "" && whenStr != "" {
		now := time.Now().In(sc.Resolver().Timezone())
		res, err := sc.Resolver().Resolve(whenStr, now)
		if err != nil {
			sc.Metrics().RecordCancellation(ctx, "error")
			return mcp.NewToolResultError(describeError(err)), nil
		}
		sc.Metrics().RecordTemporalResolution(ctx, res.Rule)
		if res.ExplicitTime {
			req.Around = res.Start
			req.ExplicitTime = true
		} else {
			req.Around = res.Date
		}
	}

	result, err := sc.Scheduler().Cancel(ctx, req)
	if err != nil {
		sc.Metrics().RecordCancellation(ctx, cancellationFailureStatus(err))
		sc.Metrics().RecordToolInvocation(ctx, "scheduling_cancel_meeting", "error", time.Since(started))
		return mcp.NewToolResultError(describeError(err)), nil
	}

	sc.Metrics().RecordCancellation(ctx, "cancelled")
	sc.Metrics().RecordToolInvocation(ctx, "scheduling_cancel_meeting", "success", time.Since(started))

	m := result.Meeting
	var b strings.Builder
	fmt.Fprintf(&b, "Meeting %s cancelled: %s on %s with %s.\n",
		m.ID, m.Title, m.Start.Format("Monday, January 2 at 3:04 PM"), m.Attendee.Name)
	for _, w := range result.Warnings {
		fmt.Fprintf(&b, "\nWarning: %s\n", w)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func handleCheckAvailability(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	started := time.Now()
	args := request.GetArguments()

	whenStr, ok := args["when"].(string)
	if !ok || whenStr == "" {
		return mcp.NewToolResultError("when is required"), nil
	}
	duration := parseDurationArg(args)

	now := time.Now().In(sc.Resolver().Timezone())
	res, err := sc.Resolver().Resolve(whenStr, now)
	if err != nil {
		return mcp.NewToolResultError(describeError(err)), nil
	}
	sc.Metrics().RecordTemporalResolution(ctx, res.Rule)

	if res.EnumerateSlots {
		text, err := renderSlots(ctx, sc, res.Date, duration, now)
		if err != nil {
			sc.Metrics().RecordAvailabilityCheck(ctx, "unavailable")
			return mcp.NewToolResultError(describeError(err)), nil
		}
		sc.Metrics().RecordAvailabilityCheck(ctx, "free")
		sc.Metrics().RecordToolInvocation(ctx, "scheduling_check_availability", "success", time.Since(started))
		return mcp.NewToolResultText(text), nil
	}

	err = sc.Engine().CheckBookable(ctx, res.Start, duration)
	switch {
	case err == nil:
		sc.Metrics().RecordAvailabilityCheck(ctx, "free")
		sc.Metrics().RecordToolInvocation(ctx, "scheduling_check_availability", "success", time.Since(started))
		return mcp.NewToolResultText(fmt.Sprintf("%s is available for %s.",
			res.Start.Format("Monday, January 2 at 3:04 PM"), duration)), nil
	case isRejected(err):
		sc.Metrics().RecordAvailabilityCheck(ctx, "outside_hours")
	case isConflict(err):
		sc.Metrics().RecordAvailabilityCheck(ctx, "conflict")
	default:
		sc.Metrics().RecordAvailabilityCheck(ctx, "unavailable")
		sc.Metrics().RecordToolInvocation(ctx, "scheduling_check_availability", "error", time.Since(started))
		return mcp.NewToolResultError(describeError(err)), nil
	}
	sc.Metrics().RecordToolInvocation(ctx, "scheduling_check_availability", "success", time.Since(started))
	return mcp.NewToolResultText("Not available: " + describeError(err)), nil
}

func handleListMeetings(ctx context.Context, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	meetings, err := sc.Scheduler().ListUpcoming(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list meetings: %v", err)), nil
	}
	if len(meetings) == 0 {
		return mcp.NewToolResultText("No upcoming meetings."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Upcoming meetings (%d):\n\n", len(meetings))
	for _, m := range meetings {
		fmt.Fprintf(&b, "%s  %s  %s with %s\n",
			m.ID, m.Start.Format("Mon Jan 2 3:04 PM"), m.Title, m.Attendee.Name)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// renderSlots enumerates free slots on date and formats up to maxListedSlots
// of them.
func renderSlots(ctx context.Context, sc *server.ServerContext, date time.Time, duration time.Duration, now time.Time) (string, error) {
	seq, err := sc.Engine().SlotsOn(ctx, date, duration, now)
	if err != nil {
		return "", err
	}

	var starts []string
	for slot := range seq {
		starts = append(starts, slot.Start.Format("3:04 PM"))
		if len(starts) == maxListedSlots {
			break
		}
	}
	if len(starts) == 0 {
		return fmt.Sprintf("No free %s slots on %s.", duration, date.Format("Monday, January 2")), nil
	}
	return fmt.Sprintf("Free %s slots on %s: %s",
		duration, date.Format("Monday, January 2"), strings.Join(starts, ", ")), nil
}

// parseDurationArg reads the duration argument, accepting natural-language
// phrasing. Defaults to 30 minutes.
func parseDurationArg(args map[string]interface{}) time.Duration {
	if s, ok := args["duration"].(string); ok && s != "" {
		if d, ok := temporal.ParseDuration(s); ok {
			return d
		}
	}
	if v, ok := args["duration"].(float64); ok && v > 0 {
		return time.Duration(v) * time.Minute
	}
	return 30 * time.Minute
}

// describeError renders the error taxonomy with actionable detail for the
// conversational layer.
func describeError(err error) string {
	var ambiguousTime *temporal.AmbiguousError
	var past *temporal.PastTimeError
	var rejected *workinghours.RejectedError
	var conflict *availability.SlotConflictError
	var unavailable *availability.CalendarUnavailableError
	var authRequired *credentials.AuthenticationRequiredError
	var notFound *meeting.NotFoundError
	var ambiguousMatch *meeting.AmbiguousMatchError

	switch {
	case errors.As(err, &ambiguousTime):
		return fmt.Sprintf("%v. Please give a specific date and time, e.g. 'tomorrow at 2pm'.", err)
	case errors.As(err, &past):
		return fmt.Sprintf("%v. Please pick a future time.", err)
	case errors.As(err, &rejected):
		return err.Error()
	case errors.As(err, &conflict):
		return fmt.Sprintf("%v. Try scheduling_check_availability to see free slots.", err)
	case errors.As(err, &unavailable):
		return fmt.Sprintf("The calendar could not be reached: %v. Please try again shortly.", err)
	case errors.As(err, &authRequired):
		return fmt.Sprintf("%v. Run the auth flow to reconnect the calendar.", err)
	case errors.As(err, &notFound):
		return err.Error()
	case errors.As(err, &ambiguousMatch):
		return fmt.Sprintf("%v. Please supply the meeting ID or a more specific time; nothing was cancelled.", err)
	default:
		return err.Error()
	}
}

func isRejected(err error) bool {
	var rejected *workinghours.RejectedError
	return errors.As(err, &rejected)
}

func isConflict(err error) bool {
	var conflict *availability.SlotConflictError
	return errors.As(err, &conflict)
}

func bookingFailureStatus(err error) string {
	var unavailable *availability.CalendarUnavailableError
	if errors.As(err, &unavailable) {
		return "error"
	}
	return "rejected"
}

func cancellationFailureStatus(err error) string {
	var notFound *meeting.NotFoundError
	var ambiguous *meeting.AmbiguousMatchError
	switch {
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &ambiguous):
		return "ambiguous"
	default:
		return "error"
	}
}
