package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative commands",
	}

	cmd.AddCommand(newAdminResetStatsCmd())
	cmd.AddCommand(newAdminWipeCmd())

	return cmd
}

func newAdminResetStatsCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "reset-stats",
		Short: "Reset a player's wins and time played to zero",
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := app.Storage.FindByUsername(cmd.Context(), strings.TrimSpace(user))
			if err != nil {
				return err
			}

			if err := app.Accounts.ResetStats(cmd.Context(), account.ID); err != nil {
				return err
			}
			if app.Sessions.CurrentUserID() == account.ID {
				app.Sessions.RefreshCurrentUser(cmd.Context())
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout(), cmd.ErrOrStderr())
			out.PrintMessage(fmt.Sprintf("Stats reset for %s", account.Username))
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newAdminWipeCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Delete every account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to wipe without --yes")
			}

			n, err := app.Accounts.Wipe(cmd.Context())
			if err != nil {
				return err
			}
			// The session would dangle otherwise
			app.Sessions.Logout(cmd.Context())

			out := NewOutput(cfg.Output, cmd.OutOrStdout(), cmd.ErrOrStderr())
			out.PrintMessage(fmt.Sprintf("Deleted %d %s", n, pluralAccounts(n)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deleting all accounts")

	return cmd
}

func pluralAccounts(n int64) string {
	if n == 1 {
		return "account"
	}
	return "accounts"
}
