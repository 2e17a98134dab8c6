package model

import "time"

// AccountID uniquely identifies an account. Assigned by the store, never reused.
type AccountID int64

// NoAccount is the id reported when no user is logged in
const NoAccount AccountID = -1

// Account is a durable user record: credentials plus game statistics
type Account struct {
	ID              AccountID     `json:"id"`
	Username        string        `json:"username"`                  // immutable after creation
	PasswordDigest  string        `json:"password_digest,omitempty"` // never plaintext
	Wins            int           `json:"wins"`
	TotalTimePlayed time.Duration `json:"total_time_played"`
	CreatedAt       time.Time     `json:"created_at"`
}

// Clone returns a copy that callers may hold without sharing store-owned memory
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

// SessionMarker is the small durable record that lets a session survive a restart.
// UserID and Username are a cache of the account, not authoritative.
type SessionMarker struct {
	LoggedIn bool
	UserID   AccountID
	Username string
}

// Valid reports whether a logged-in marker carries a usable account reference
func (m SessionMarker) Valid() bool {
	return m.UserID > 0 && m.Username != ""
}
