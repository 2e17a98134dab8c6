package storage

import (
	"context"
	"time"

	"github.com/mcoot/chessapp-go/internal/model"
)

// Accounts is the durable account table. It is the sole owner of account data.
//
// Missing rows are reported as model.ErrAccountNotFound, username conflicts as
// model.ErrDuplicateUsername, and every I/O failure as a *model.StorageError.
// Usernames are matched case-insensitively; the stored spelling is preserved.
type Accounts interface {
	CreateAccount(ctx context.Context, username, passwordDigest string) (model.AccountID, error)
	FindByUsername(ctx context.Context, username string) (*model.Account, error)
	FindByID(ctx context.Context, id model.AccountID) (*model.Account, error)
	UsernameExists(ctx context.Context, username string) (bool, error)

	// UpdateStats overwrites wins and total time. Zero rows affected means the id is unknown.
	UpdateStats(ctx context.Context, id model.AccountID, wins int, totalTime time.Duration) (int64, error)

	// Leaderboard returns every account by wins descending, then time played ascending,
	// then id ascending.
	Leaderboard(ctx context.Context) ([]*model.Account, error)

	// DeleteAll wipes every account. Ids are still never reused afterwards.
	DeleteAll(ctx context.Context) (int64, error)
}

// Markers is the small key/value area holding the durable session marker
type Markers interface {
	// LoadMarker returns the stored marker, or a zero marker when none is stored
	LoadMarker(ctx context.Context) (*model.SessionMarker, error)
	SaveMarker(ctx context.Context, marker model.SessionMarker) error
	// ClearMarker erases the whole marker area
	ClearMarker(ctx context.Context) error
}

// Storage is a backend providing both the account table and the marker area
type Storage interface {
	Accounts
	Markers
	Close() error
}
