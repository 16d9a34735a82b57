package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newAuthCmd() *cobra.Command {
	var (
		code  string
		debug bool
	)

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize calendar access",
		Long: `Run the OAuth flow for calendar access.

Without flags, prints the consent URL. After granting access, pass the
authorization code back:

  schedcore auth
  schedcore auth --code 4/0AX4XfW...

The refresh token is written to every configured credential tier, so
authorization survives restarts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			comps, err := buildComponents(ctx, debug)
			if err != nil {
				return err
			}
			defer comps.Close()

			if code == "" {
				fmt.Println("Visit this URL to authorize calendar access:")
				fmt.Println()
				fmt.Println("  " + comps.vault.AuthURL("state"))
				fmt.Println()
				fmt.Println("Then run: schedcore auth --code <authorization code>")
				return nil
			}

			if err := comps.vault.Exchange(ctx, code); err != nil {
				return err
			}
			fmt.Println("Authorization complete. Credentials stored.")
			return nil
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "Authorization code from the consent page")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	return cmd
}
