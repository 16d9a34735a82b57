package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/chatcal/schedcore/internal/meeting"
)

func newCancelCmd() *cobra.Command {
	var (
		id    string
		name  string
		when  string
		debug bool
	)

	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a booked meeting",
		Long: `Cancel a meeting by ID, or by attendee name plus an approximate time:

  schedcore cancel --id 0612-1500-030
  schedcore cancel --name "John Smith" --when "tomorrow at 3pm"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" && name == "" {
				return fmt.Errorf("either --id or --name is required")
			}

			ctx := context.Background()
			comps, err := buildComponents(ctx, debug)
			if err != nil {
				return err
			}
			defer comps.Close()

			req := meeting.CancelRequest{ID: id, AttendeeName: name}
			if id == "" && when != "" {
				now := time.Now().In(comps.cfg.Timezone)
				res, err := comps.resolver.Resolve(when, now)
				if err != nil {
					return err
				}
				if res.ExplicitTime {
					req.Around = res.Start
					req.ExplicitTime = true
				} else {
					req.Around = res.Date
				}
			}

			result, err := comps.scheduler.Cancel(ctx, req)
			if err != nil {
				return err
			}

			m := result.Meeting
			fmt.Printf("Cancelled %s: %s on %s with %s\n",
				m.ID, m.Title, m.Start.Format("Monday, January 2 at 3:04 PM"), m.Attendee.Name)
			for _, w := range result.Warnings {
				fmt.Printf("Warning: %s\n", w)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Meeting ID from the booking confirmation")
	cmd.Flags().StringVar(&name, "name", "", "Attendee name to match when no ID is given")
	cmd.Flags().StringVar(&when, "when", "", "Approximate date/time of the meeting")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	return cmd
}
