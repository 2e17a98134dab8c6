package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newRegisterCmd() *cobra.Command {
	var user, pass string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new player account",
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := app.Accounts.Register(cmd.Context(), user, pass)
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout(), cmd.ErrOrStderr())
			out.Print(newProfile(account))
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username (required)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func newLoginCmd() *cobra.Command {
	var user, pass string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in; the session persists across invocations",
		RunE: func(cmd *cobra.Command, args []string) error {
			result := app.Sessions.Login(cmd.Context(), user, pass)
			if !result.Success {
				return errors.New(result.Message)
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout(), cmd.ErrOrStderr())
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username")
	cmd.Flags().StringVar(&pass, "pass", "", "Password")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Sessions.Logout(cmd.Context())

			out := NewOutput(cfg.Output, cmd.OutOrStdout(), cmd.ErrOrStderr())
			out.PrintMessage("Logged out")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in player",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cfg.Output, cmd.OutOrStdout(), cmd.ErrOrStderr())

			if !app.Sessions.IsLoggedIn() {
				out.Print(SessionStatus{LoggedIn: false})
				return nil
			}

			profile := newProfile(app.Sessions.CurrentUser())
			out.Print(SessionStatus{LoggedIn: true, User: &profile})
			return nil
		},
	}
}

func newVerifyCmd() *cobra.Command {
	var user, pass string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a password without starting a session",
		Long: `Check a password without starting a session.

Defaults to the logged-in player when --user is omitted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				user = app.Sessions.CurrentUsername()
			}
			if user == "" {
				return fmt.Errorf("--user is required when not logged in")
			}

			if !app.Sessions.ValidateCredentials(cmd.Context(), user, pass) {
				return errors.New("credentials are not valid")
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout(), cmd.ErrOrStderr())
			out.PrintMessage("Credentials are valid")
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username (defaults to the logged-in player)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password (required)")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}
