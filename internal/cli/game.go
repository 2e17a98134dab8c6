package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"
)

func newRecordCmd() *cobra.Command {
	var won bool
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a finished game for the logged-in player",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !app.Sessions.IsLoggedIn() {
				return errors.New("you must be logged in to record a game")
			}

			if _, err := app.Accounts.RecordGame(cmd.Context(), app.Sessions.CurrentUserID(), won, duration); err != nil {
				return err
			}
			app.Sessions.RefreshCurrentUser(cmd.Context())

			out := NewOutput(cfg.Output, cmd.OutOrStdout(), cmd.ErrOrStderr())
			out.Print(newProfile(app.Sessions.CurrentUser()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&won, "won", false, "The logged-in player won the game")
	cmd.Flags().DurationVar(&duration, "duration", 0, "How long the game lasted (e.g. 12m30s)")

	return cmd
}

func newLeaderboardCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show players ranked by wins, then by least time played",
		RunE: func(cmd *cobra.Command, args []string) error {
			standings, err := app.Accounts.Leaderboard(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout(), cmd.ErrOrStderr())
			out.Print(newStandings(standings))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum rows to show (0 for all)")

	return cmd
}
