package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mcoot/chessapp-go/internal/dependencies/clock"
	"github.com/mcoot/chessapp-go/internal/model"
	"github.com/mcoot/chessapp-go/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	clock clock.Clock

	mu sync.RWMutex

	accounts      map[model.AccountID]*model.Account
	usernameIndex map[string]model.AccountID
	lastID        model.AccountID
	marker        *model.SessionMarker
}

// New creates a new in-memory storage instance
func New(clk clock.Clock) *Storage {
	return &Storage{
		clock:         clk,
		accounts:      make(map[model.AccountID]*model.Account),
		usernameIndex: make(map[string]model.AccountID),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Close is a no-op for in-memory storage
func (s *Storage) Close() error {
	return nil
}

// Account operations

func (s *Storage) CreateAccount(ctx context.Context, username, passwordDigest string) (model.AccountID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := storage.FoldUsername(username)
	if _, ok := s.usernameIndex[key]; ok {
		return 0, model.ErrDuplicateUsername
	}

	s.lastID++
	account := &model.Account{
		ID:             s.lastID,
		Username:       username,
		PasswordDigest: passwordDigest,
		CreatedAt:      s.clock.Now(),
	}
	s.accounts[account.ID] = account
	s.usernameIndex[key] = account.ID
	return account.ID, nil
}

func (s *Storage) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usernameIndex[storage.FoldUsername(username)]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	account, ok := s.accounts[id]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	return account.Clone(), nil
}

func (s *Storage) FindByID(ctx context.Context, id model.AccountID) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	return account.Clone(), nil
}

func (s *Storage) UsernameExists(ctx context.Context, username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.usernameIndex[storage.FoldUsername(username)]
	return ok, nil
}

func (s *Storage) UpdateStats(ctx context.Context, id model.AccountID, wins int, totalTime time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return 0, nil
	}
	account.Wins = wins
	account.TotalTimePlayed = totalTime.Truncate(time.Millisecond)
	return 1, nil
}

func (s *Storage) Leaderboard(ctx context.Context) ([]*model.Account, error) {
	s.mu.RLock()
	accounts := make([]*model.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		accounts = append(accounts, account.Clone())
	}
	s.mu.RUnlock()

	storage.SortLeaderboard(accounts)
	return accounts, nil
}

func (s *Storage) DeleteAll(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.accounts))
	s.accounts = make(map[model.AccountID]*model.Account)
	s.usernameIndex = make(map[string]model.AccountID)
	return n, nil
}

// Marker operations

func (s *Storage) LoadMarker(ctx context.Context) (*model.SessionMarker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.marker == nil {
		return &model.SessionMarker{}, nil
	}
	m := *s.marker
	return &m, nil
}

func (s *Storage) SaveMarker(ctx context.Context, marker model.SessionMarker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marker = &marker
	return nil
}

func (s *Storage) ClearMarker(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marker = nil
	return nil
}
