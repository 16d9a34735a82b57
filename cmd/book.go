package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/chatcal/schedcore/internal/meeting"
	"github.com/chatcal/schedcore/internal/temporal"
)

func newBookCmd() *cobra.Command {
	var (
		when     string
		duration string
		title    string
		name     string
		email    string
		phone    string
		noMeet   bool
		debug    bool
	)

	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book a meeting from a natural-language date/time",
		Long: `Book a meeting. The date/time is free text, e.g.:

  schedcore book --when "tomorrow at 2pm" --name "John Smith" --email john@example.com
  schedcore book --when "next friday morning" --duration "an hour" --name "John Smith" --phone "+1-555-0100"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			comps, err := buildComponents(ctx, debug)
			if err != nil {
				return err
			}
			defer comps.Close()

			d := 30 * time.Minute
			if duration != "" {
				parsed, ok := temporal.ParseDuration(duration)
				if !ok {
					return fmt.Errorf("could not understand duration %q", duration)
				}
				d = parsed
			}

			now := time.Now().In(comps.cfg.Timezone)
			res, err := comps.resolver.Resolve(when, now)
			if err != nil {
				return err
			}
			if res.EnumerateSlots {
				return fmt.Errorf("no specific time in %q; run 'schedcore availability --when %q' to see free slots", when, when)
			}

			result, err := comps.scheduler.Book(ctx, meeting.BookRequest{
				Title:            title,
				Start:            res.Start,
				Duration:         d,
				Attendee:         meeting.Attendee{Name: name, Email: email, Phone: phone},
				WantConferencing: !noMeet,
			})
			if err != nil {
				return err
			}

			m := result.Meeting
			fmt.Printf("Booked %s: %s on %s with %s\n",
				m.ID, m.Title, m.Start.Format("Monday, January 2 at 3:04 PM"), m.Attendee.Name)
			if m.MeetLink != "" {
				fmt.Printf("Meet link: %s\n", m.MeetLink)
			}
			for _, w := range result.Warnings {
				fmt.Printf("Warning: %s\n", w)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&when, "when", "", "Natural-language date/time (required)")
	cmd.Flags().StringVar(&duration, "duration", "", "Meeting duration (default: 30 minutes)")
	cmd.Flags().StringVar(&title, "title", "", "Meeting title")
	cmd.Flags().StringVar(&name, "name", "", "Attendee name (required)")
	cmd.Flags().StringVar(&email, "email", "", "Attendee email")
	cmd.Flags().StringVar(&phone, "phone", "", "Attendee phone")
	cmd.Flags().BoolVar(&noMeet, "no-meet", false, "Skip the Google Meet link")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	_ = cmd.MarkFlagRequired("when")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}
