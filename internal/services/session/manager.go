package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/mcoot/chessapp-go/internal/model"
	"github.com/mcoot/chessapp-go/internal/services/password"
	"github.com/mcoot/chessapp-go/internal/storage"
)

// Login result messages. The invalid credentials text is shared by unknown
// usernames and wrong passwords.
const (
	MsgEmptyUsername      = "Username cannot be empty"
	MsgEmptyPassword      = "Password cannot be empty"
	MsgInvalidCredentials = "Invalid username or password"
	MsgSystemError        = "Login failed due to system error"
	MsgLoginSuccessful    = "Login successful"
)

// Result is the outcome of a login attempt
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RestoreResult describes what Initialize did with the durable marker
type RestoreResult int

const (
	// RestoreNone means no logged-in marker was stored
	RestoreNone RestoreResult = iota
	// Restored means the marker named an existing account, now logged in
	Restored
	// RestoreCleared means the marker was invalid, dangling or unreadable and was erased
	RestoreCleared
)

func (r RestoreResult) String() string {
	switch r {
	case RestoreNone:
		return "none"
	case Restored:
		return "restored"
	case RestoreCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// RefreshResult describes what RefreshCurrentUser did
type RefreshResult int

const (
	// RefreshSkipped means nobody is logged in
	RefreshSkipped RefreshResult = iota
	// Refreshed means the cached account was replaced with a fresh read
	Refreshed
	// RefreshKeptStale means the read failed or found nothing; the cached copy was kept
	RefreshKeptStale
)

func (r RefreshResult) String() string {
	switch r {
	case RefreshSkipped:
		return "skipped"
	case Refreshed:
		return "refreshed"
	case RefreshKeptStale:
		return "kept_stale"
	default:
		return "unknown"
	}
}

// Manager owns the process-wide authentication state: who, if anyone, is logged in.
//
// Login, Logout, Initialize and RefreshCurrentUser are serialized by a mutation lock
// held across the state transition and the durable marker write. Accessors only take
// a read lock on the (loggedIn, current) snapshot and never touch storage.
type Manager struct {
	accounts storage.Accounts
	markers  storage.Markers
	verifier password.Verifier
	logger   *slog.Logger

	mutate sync.Mutex

	mu       sync.RWMutex
	loggedIn bool
	current  *model.Account
}

// New creates a Manager in the LoggedOut state. Call Initialize to restore a
// persisted session.
func New(accounts storage.Accounts, markers storage.Markers, verifier password.Verifier, logger *slog.Logger) *Manager {
	return &Manager{
		accounts: accounts,
		markers:  markers,
		verifier: verifier,
		logger:   logger,
	}
}

// Initialize restores the session recorded by the durable marker. It never fails:
// anything unusable is cleared and the manager stays LoggedOut.
func (m *Manager) Initialize(ctx context.Context) RestoreResult {
	m.mutate.Lock()
	defer m.mutate.Unlock()

	m.setState(false, nil)

	marker, err := m.markers.LoadMarker(ctx)
	if err != nil {
		m.logger.Warn("could not read session marker",
			slog.String("error", err.Error()),
		)
		m.clearMarker(ctx)
		return RestoreCleared
	}

	if !marker.LoggedIn {
		return RestoreNone
	}

	if !marker.Valid() {
		m.logger.Warn("session marker is incomplete, clearing",
			slog.Int64("user_id", int64(marker.UserID)),
			slog.String("username", marker.Username),
		)
		m.clearMarker(ctx)
		return RestoreCleared
	}

	account, err := m.accounts.FindByID(ctx, marker.UserID)
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			m.logger.Warn("session marker references a missing account, clearing",
				slog.Int64("user_id", int64(marker.UserID)),
				slog.String("username", marker.Username),
			)
		} else {
			m.logger.Error("could not restore session",
				slog.Int64("user_id", int64(marker.UserID)),
				slog.String("error", err.Error()),
			)
		}
		m.clearMarker(ctx)
		return RestoreCleared
	}

	m.setState(true, account)
	m.logger.Info("session restored",
		slog.Int64("user_id", int64(account.ID)),
		slog.String("username", account.Username),
	)
	return Restored
}

// Login verifies the credentials and, on success, records the session durably
// before switching to LoggedIn
func (m *Manager) Login(ctx context.Context, username, secret string) Result {
	if msg, ok := checkInput(username, secret); !ok {
		return Result{Success: false, Message: msg}
	}

	m.mutate.Lock()
	defer m.mutate.Unlock()

	account, err := m.lookup(ctx, username, secret)
	if err != nil {
		if errors.Is(err, errBadCredentials) {
			return Result{Success: false, Message: MsgInvalidCredentials}
		}
		m.logger.Error("login lookup failed",
			slog.String("username", strings.TrimSpace(username)),
			slog.String("error", err.Error()),
		)
		return Result{Success: false, Message: MsgSystemError}
	}

	marker := model.SessionMarker{LoggedIn: true, UserID: account.ID, Username: account.Username}
	if err := m.markers.SaveMarker(ctx, marker); err != nil {
		m.logger.Error("failed to persist session marker",
			slog.Int64("user_id", int64(account.ID)),
			slog.String("error", err.Error()),
		)
		return Result{Success: false, Message: MsgSystemError}
	}

	m.setState(true, account)
	m.logger.Info("user logged in",
		slog.Int64("user_id", int64(account.ID)),
		slog.String("username", account.Username),
	)
	return Result{Success: true, Message: MsgLoginSuccessful}
}

// Logout clears the in-memory session and the durable marker. Safe to call when
// already logged out.
func (m *Manager) Logout(ctx context.Context) {
	m.mutate.Lock()
	defer m.mutate.Unlock()

	m.mu.RLock()
	prev := m.current
	m.mu.RUnlock()

	m.setState(false, nil)
	m.clearMarker(ctx)

	if prev != nil {
		m.logger.Info("user logged out",
			slog.Int64("user_id", int64(prev.ID)),
			slog.String("username", prev.Username),
		)
	}
}

// IsLoggedIn reports whether a user is logged in with a cached account
func (m *Manager) IsLoggedIn() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loggedIn && m.current != nil
}

// CurrentUser returns a copy of the logged-in account, or nil
func (m *Manager) CurrentUser() *model.Account {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.loggedIn {
		return nil
	}
	return m.current.Clone()
}

// CurrentUsername returns the logged-in username, or "" when logged out
func (m *Manager) CurrentUsername() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.loggedIn || m.current == nil {
		return ""
	}
	return m.current.Username
}

// CurrentUserID returns the logged-in account id, or model.NoAccount when logged out
func (m *Manager) CurrentUserID() model.AccountID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.loggedIn || m.current == nil {
		return model.NoAccount
	}
	return m.current.ID
}

// ValidateCredentials checks a username and password without touching the session.
// Any failure, including storage errors, is reported as false.
func (m *Manager) ValidateCredentials(ctx context.Context, username, secret string) bool {
	if _, ok := checkInput(username, secret); !ok {
		return false
	}
	_, err := m.lookup(ctx, username, secret)
	if err != nil && !errors.Is(err, errBadCredentials) {
		m.logger.Warn("credential check failed",
			slog.String("username", strings.TrimSpace(username)),
			slog.String("error", err.Error()),
		)
	}
	return err == nil
}

// RefreshCurrentUser re-reads the logged-in account. On any failure the cached
// copy is kept.
func (m *Manager) RefreshCurrentUser(ctx context.Context) RefreshResult {
	m.mutate.Lock()
	defer m.mutate.Unlock()

	m.mu.RLock()
	loggedIn, current := m.loggedIn, m.current
	m.mu.RUnlock()

	if !loggedIn || current == nil {
		return RefreshSkipped
	}

	account, err := m.accounts.FindByID(ctx, current.ID)
	if err != nil {
		m.logger.Warn("could not refresh current user, keeping cached copy",
			slog.Int64("user_id", int64(current.ID)),
			slog.String("error", err.Error()),
		)
		return RefreshKeptStale
	}

	m.setState(true, account)
	return Refreshed
}

// errBadCredentials covers both an unknown username and a wrong password
var errBadCredentials = errors.New("bad credentials")

// lookup finds the account by trimmed username and verifies the password against it
func (m *Manager) lookup(ctx context.Context, username, secret string) (*model.Account, error) {
	account, err := m.accounts.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			return nil, errBadCredentials
		}
		return nil, err
	}
	if !m.verifier.Verify(secret, account.PasswordDigest) {
		return nil, errBadCredentials
	}
	return account, nil
}

func (m *Manager) setState(loggedIn bool, account *model.Account) {
	m.mu.Lock()
	m.loggedIn = loggedIn
	m.current = account.Clone()
	m.mu.Unlock()
}

func (m *Manager) clearMarker(ctx context.Context) {
	if err := m.markers.ClearMarker(ctx); err != nil {
		m.logger.Warn("failed to clear session marker",
			slog.String("error", err.Error()),
		)
	}
}

// checkInput rejects blank fields before any storage access
func checkInput(username, secret string) (string, bool) {
	if strings.TrimSpace(username) == "" {
		return MsgEmptyUsername, false
	}
	if strings.TrimSpace(secret) == "" {
		return MsgEmptyPassword, false
	}
	return "", true
}
