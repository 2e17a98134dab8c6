package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/mcoot/chessapp-go/internal/config"
	"github.com/mcoot/chessapp-go/internal/factory"
	"github.com/mcoot/chessapp-go/internal/logging"
)

// Config holds CLI-only settings; storage and logging come from internal/config
type Config struct {
	Output string
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		Output: "text",
	}
}

// openApp loads settings from the environment and the command's flags, wires the
// application and restores any persisted session
func openApp(ctx context.Context, cmd *cobra.Command) (*factory.App, io.Closer, error) {
	settings, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}

	level, err := config.ParseLevel(settings.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = level
	logCfg.File = settings.LogFile
	logCfg.Stderr = cmd.ErrOrStderr()

	logger, logCloser, err := logging.New(logCfg)
	if err != nil {
		return nil, nil, err
	}

	app, err := factory.New(factory.FromSettings(settings, logger))
	if err != nil {
		_ = logCloser.Close()
		return nil, nil, err
	}

	app.Sessions.Initialize(ctx)
	return app, logCloser, nil
}
