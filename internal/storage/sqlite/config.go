package sqlite

import "time"

// Config holds SQLite connection settings
type Config struct {
	// Path is the database file. ":memory:" is not supported since the schema
	// would vanish with the connection.
	Path string

	// BusyTimeout is how long a statement waits on a locked database
	BusyTimeout time.Duration
}

// DefaultConfig returns sensible defaults for SQLite configuration
func DefaultConfig() Config {
	return Config{
		Path:        "chessapp.db",
		BusyTimeout: 5 * time.Second,
	}
}
