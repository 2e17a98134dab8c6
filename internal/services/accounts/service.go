package accounts

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/mcoot/chessapp-go/internal/model"
	"github.com/mcoot/chessapp-go/internal/services/password"
	"github.com/mcoot/chessapp-go/internal/storage"
)

// Standing is one leaderboard row
type Standing struct {
	Rank            int             `json:"rank"`
	ID              model.AccountID `json:"id"`
	Username        string          `json:"username"`
	Wins            int             `json:"wins"`
	TotalTimePlayed time.Duration   `json:"total_time_played"`
}

// Service handles registration and game statistics
type Service struct {
	accounts storage.Accounts
	hasher   password.Hasher
	logger   *slog.Logger
}

// New creates a new account service
func New(accounts storage.Accounts, hasher password.Hasher, logger *slog.Logger) *Service {
	return &Service{
		accounts: accounts,
		hasher:   hasher,
		logger:   logger,
	}
}

// Register validates and creates a new account
func (s *Service) Register(ctx context.Context, username, secret string) (*model.Account, error) {
	username = strings.TrimSpace(username)
	if err := password.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := password.ValidatePassword(secret); err != nil {
		return nil, err
	}

	exists, err := s.accounts.UsernameExists(ctx, username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, model.ErrDuplicateUsername
	}

	digest, err := s.hasher.Hash(secret)
	if err != nil {
		return nil, err
	}

	// A concurrent registration can still win between the check and the insert;
	// the store reports that as ErrDuplicateUsername too
	id, err := s.accounts.CreateAccount(ctx, username, digest)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("account registered",
		slog.Int64("user_id", int64(id)),
		slog.String("username", username),
		slog.String("scheme", s.hasher.Scheme()),
	)
	return account, nil
}

// RecordGame adds one finished game to an account's totals and returns the updated account.
// The read and write are separate store calls; a concurrent writer may be overwritten.
func (s *Service) RecordGame(ctx context.Context, id model.AccountID, won bool, played time.Duration) (*model.Account, error) {
	if played < 0 {
		return nil, model.NewValidationError("duration", "Game duration cannot be negative")
	}

	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if won {
		account.Wins++
	}
	account.TotalTimePlayed = (account.TotalTimePlayed + played).Truncate(time.Millisecond)

	if err := s.writeStats(ctx, account.ID, account.Wins, account.TotalTimePlayed); err != nil {
		return nil, err
	}

	s.logger.Info("game recorded",
		slog.Int64("user_id", int64(account.ID)),
		slog.Bool("won", won),
		slog.Int("wins", account.Wins),
		slog.Duration("total_time_played", account.TotalTimePlayed),
	)
	return account, nil
}

// ResetStats zeroes an account's wins and time played
func (s *Service) ResetStats(ctx context.Context, id model.AccountID) error {
	if err := s.writeStats(ctx, id, 0, 0); err != nil {
		return err
	}
	s.logger.Info("stats reset", slog.Int64("user_id", int64(id)))
	return nil
}

// Leaderboard returns ranked standings. limit <= 0 returns every account.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]Standing, error) {
	accounts, err := s.accounts.Leaderboard(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(accounts) > limit {
		accounts = accounts[:limit]
	}

	standings := make([]Standing, len(accounts))
	for i, a := range accounts {
		standings[i] = Standing{
			Rank:            i + 1,
			ID:              a.ID,
			Username:        a.Username,
			Wins:            a.Wins,
			TotalTimePlayed: a.TotalTimePlayed,
		}
	}
	return standings, nil
}

// Wipe deletes every account and returns how many were removed
func (s *Service) Wipe(ctx context.Context) (int64, error) {
	n, err := s.accounts.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Warn("all accounts deleted", slog.Int64("count", n))
	return n, nil
}

func (s *Service) writeStats(ctx context.Context, id model.AccountID, wins int, total time.Duration) error {
	rows, err := s.accounts.UpdateStats(ctx, id, wins, total)
	if err != nil {
		return err
	}
	if rows == 0 {
		return model.ErrAccountNotFound
	}
	return nil
}

// IsUserError reports whether err is a caller mistake rather than a system failure
func IsUserError(err error) bool {
	return errors.Is(err, model.ErrValidation) ||
		errors.Is(err, model.ErrDuplicateUsername) ||
		errors.Is(err, model.ErrAccountNotFound)
}
