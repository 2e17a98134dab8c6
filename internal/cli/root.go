package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcoot/chessapp-go/internal/factory"
)

var (
	cfg       *Config
	app       *factory.App
	logCloser io.Closer
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()
	app = nil
	logCloser = nil

	rootCmd := &cobra.Command{
		Use:   "chessapp",
		Short: "Account and session management for the chess app",
		Long: `chessapp manages local chess player accounts: registration, login sessions
that survive restarts, game statistics and the leaderboard.

Every invocation restores the session saved by the last successful login.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			app, logCloser, err = openApp(cmd.Context(), cmd)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return closeApp()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags. Storage and logging flags override CHESSAPP_* environment variables.
	rootCmd.PersistentFlags().String("storage", "", "Storage backend: sqlite, memory, redis (env: CHESSAPP_STORAGE)")
	rootCmd.PersistentFlags().String("db", "", "SQLite database file (env: CHESSAPP_DB_PATH)")
	rootCmd.PersistentFlags().String("redis-url", "", "Redis URL (env: CHESSAPP_REDIS_URL)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (env: CHESSAPP_LOG_LEVEL)")
	rootCmd.PersistentFlags().String("log-file", "", "Rotating log file path (env: CHESSAPP_LOG_FILE)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")

	// Add subcommands
	rootCmd.AddCommand(newRegisterCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newWhoamiCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newRecordCmd())
	rootCmd.AddCommand(newLeaderboardCmd())
	rootCmd.AddCommand(newAdminCmd())

	return rootCmd
}

// closeApp releases storage and the log file. PersistentPostRunE does not run
// after a failed command, so Execute calls it too.
func closeApp() error {
	var err error
	if app != nil {
		err = app.Close()
		app = nil
	}
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
	return err
}

// Run executes the root command with args, writing to stdout and stderr
func Run(args []string, stdout, stderr io.Writer) error {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.Execute()
	_ = closeApp()
	if err != nil {
		NewOutput(cfg.Output, stdout, stderr).PrintError(err)
	}
	return err
}

// Execute runs the root command
func Execute() {
	if err := Run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}
