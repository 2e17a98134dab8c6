package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mcoot/chessapp-go/internal/dependencies/clock"
	"github.com/mcoot/chessapp-go/internal/model"
	"github.com/mcoot/chessapp-go/internal/storage"
)

// Marker keys in the session_marker table
const (
	markerLoggedIn = "is_logged_in"
	markerUserID   = "current_user_id"
	markerUsername = "current_username"
)

// Storage is a SQLite-backed implementation of the storage interface
type Storage struct {
	db    *sqlx.DB
	clock clock.Clock
}

type accountRow struct {
	ID              int64  `db:"id"`
	Username        string `db:"username"`
	PasswordDigest  string `db:"password_digest"`
	Wins            int    `db:"wins"`
	TotalTimePlayed int64  `db:"total_time_played"`
	CreatedAt       int64  `db:"created_at"`
}

func (r accountRow) toModel() *model.Account {
	return &model.Account{
		ID:              model.AccountID(r.ID),
		Username:        r.Username,
		PasswordDigest:  r.PasswordDigest,
		Wins:            r.Wins,
		TotalTimePlayed: time.Duration(r.TotalTimePlayed) * time.Millisecond,
		CreatedAt:       clock.FromMillis(r.CreatedAt),
	}
}

type markerRow struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

const accountColumns = `id, username, password_digest, wins, total_time_played, created_at`

// New opens (creating if needed) the database file and applies pending migrations
func New(cfg Config, clk clock.Clock) (*Storage, error) {
	if cfg.Path == "" || cfg.Path == ":memory:" {
		return nil, fmt.Errorf("sqlite: a database file path is required")
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection serializes every statement
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrateUp(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Storage{db: db, clock: clk}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func isUniqueViolation(err error) bool {
	var se *msqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

// Account operations

func (s *Storage) CreateAccount(ctx context.Context, username, passwordDigest string) (model.AccountID, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (username, password_digest, wins, total_time_played, created_at) VALUES (?, ?, 0, 0, ?)`,
		username, passwordDigest, clock.ToMillis(s.clock.Now()))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, model.ErrDuplicateUsername
		}
		return 0, model.NewStorageError("create account", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, model.NewStorageError("create account", err)
	}
	return model.AccountID(id), nil
}

func (s *Storage) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	var row accountRow
	err := s.db.GetContext(ctx, &row, `SELECT `+accountColumns+` FROM accounts WHERE username = ?`, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrAccountNotFound
		}
		return nil, model.NewStorageError("find by username", err)
	}
	return row.toModel(), nil
}

func (s *Storage) FindByID(ctx context.Context, id model.AccountID) (*model.Account, error) {
	var row accountRow
	err := s.db.GetContext(ctx, &row, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, int64(id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrAccountNotFound
		}
		return nil, model.NewStorageError("find by id", err)
	}
	return row.toModel(), nil
}

func (s *Storage) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM accounts WHERE username = ?`, username); err != nil {
		return false, model.NewStorageError("username exists", err)
	}
	return count > 0, nil
}

func (s *Storage) UpdateStats(ctx context.Context, id model.AccountID, wins int, totalTime time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET wins = ?, total_time_played = ? WHERE id = ?`,
		wins, totalTime.Milliseconds(), int64(id))
	if err != nil {
		return 0, model.NewStorageError("update stats", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, model.NewStorageError("update stats", err)
	}
	return n, nil
}

func (s *Storage) Leaderboard(ctx context.Context) ([]*model.Account, error) {
	var rows []accountRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+accountColumns+` FROM accounts ORDER BY wins DESC, total_time_played ASC, id ASC`)
	if err != nil {
		return nil, model.NewStorageError("leaderboard", err)
	}

	accounts := make([]*model.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, row.toModel())
	}
	return accounts, nil
}

func (s *Storage) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM accounts`)
	if err != nil {
		return 0, model.NewStorageError("delete all", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, model.NewStorageError("delete all", err)
	}
	return n, nil
}

// Marker operations

func (s *Storage) LoadMarker(ctx context.Context) (*model.SessionMarker, error) {
	var rows []markerRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT key, value FROM session_marker`); err != nil {
		return nil, model.NewStorageError("load marker", err)
	}

	values := make(map[string]string, len(rows))
	for _, row := range rows {
		values[row.Key] = row.Value
	}

	marker := &model.SessionMarker{
		LoggedIn: values[markerLoggedIn] == "true",
		Username: values[markerUsername],
	}
	// An unparsable id is left at zero, which makes the marker invalid
	if id, err := strconv.ParseInt(values[markerUserID], 10, 64); err == nil {
		marker.UserID = model.AccountID(id)
	}
	return marker, nil
}

func (s *Storage) SaveMarker(ctx context.Context, marker model.SessionMarker) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.NewStorageError("save marker", err)
	}
	defer func() { _ = tx.Rollback() }()

	values := map[string]string{
		markerLoggedIn: strconv.FormatBool(marker.LoggedIn),
		markerUserID:   strconv.FormatInt(int64(marker.UserID), 10),
		markerUsername: marker.Username,
	}
	for key, value := range values {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session_marker (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value); err != nil {
			return model.NewStorageError("save marker", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return model.NewStorageError("save marker", err)
	}
	return nil
}

func (s *Storage) ClearMarker(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_marker`); err != nil {
		return model.NewStorageError("clear marker", err)
	}
	return nil
}
