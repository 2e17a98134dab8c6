// Package logging builds the application's slog logger, writing JSON either to
// stderr or to a daily-rotated log file.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
)

// Config controls where and how much is logged
type Config struct {
	Level slog.Level
	// File is the log path. Rotated files get a date suffix and File is kept as
	// a symlink to the newest one. Empty logs to Stderr.
	File         string
	MaxAge       time.Duration
	RotationTime time.Duration

	// Stderr is used when File is empty. Defaults to os.Stderr.
	Stderr io.Writer
}

// DefaultConfig returns info level logging to stderr with daily rotation and a
// week of retention when a file is configured
func DefaultConfig() Config {
	return Config{
		Level:        slog.LevelInfo,
		MaxAge:       7 * 24 * time.Hour,
		RotationTime: 24 * time.Hour,
	}
}

// New creates the logger. The returned closer releases the log file, if any.
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	var w io.Writer
	closer := io.Closer(nopCloser{})

	if cfg.File != "" {
		rl, err := rotatelogs.New(
			cfg.File+".%Y%m%d",
			rotatelogs.WithLinkName(cfg.File),
			rotatelogs.WithMaxAge(cfg.MaxAge),
			rotatelogs.WithRotationTime(cfg.RotationTime),
		)
		if err != nil {
			return nil, nil, err
		}
		w = rl
		closer = rl
	} else {
		w = cfg.Stderr
		if w == nil {
			w = os.Stderr
		}
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.Level,
	}))
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
