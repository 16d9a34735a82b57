package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/chatcal/schedcore/internal/temporal"
)

func newAvailabilityCmd() *cobra.Command {
	var (
		when     string
		duration string
		debug    bool
	)

	cmd := &cobra.Command{
		Use:   "availability",
		Short: "Check whether a time is bookable, or list free slots for a day",
		Long: `Check availability:

  schedcore availability --when "tomorrow at 2pm"
  schedcore availability --when "sometime friday" --duration "an hour"`,
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
				seq, err := comps.engine.SlotsOn(ctx, res.Date, d, now)
				if err != nil {
					return err
				}
				fmt.Printf("Free %s slots on %s:\n", d, res.Date.Format("Monday, January 2"))
				count := 0
				for slot := range seq {
					fmt.Printf("  %s\n", slot.Start.Format("3:04 PM"))
					count++
				}
				if count == 0 {
					fmt.Println("  (none)")
				}
				return nil
			}

			if err := comps.engine.CheckBookable(ctx, res.Start, d); err != nil {
				fmt.Printf("Not available: %v\n", err)
				return nil
			}
			fmt.Printf("%s is available for %s.\n",
				res.Start.Format("Monday, January 2 at 3:04 PM"), d)
			return nil
		},
	}

	cmd.Flags().StringVar(&when, "when", "", "Natural-language date/time or day (required)")
	cmd.Flags().StringVar(&duration, "duration", "", "Desired duration (default: 30 minutes)")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	_ = cmd.MarkFlagRequired("when")

	return cmd
}
