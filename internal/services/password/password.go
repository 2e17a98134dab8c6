// Package password produces and checks password digests.
//
// The legacy format is an unsalted SHA-256 digest rendered as lower-case hex. It is
// deterministic so stored digests stay comparable across restarts. The bcrypt scheme
// adds a per-account salt; Verify accepts both formats so the configured scheme can be
// switched without locking anyone out.
package password

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/chessapp-go/internal/model"
)

// Scheme names accepted by New
const (
	SchemeSHA256 = "sha256"
	SchemeBcrypt = "bcrypt"
)

// Length limits for new accounts
const (
	MinUsernameLength = 3
	MaxUsernameLength = 20
	MinPasswordLength = 4
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Hash returns the SHA-256 digest of secret as 64 lower-case hex characters
func Hash(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether digest matches secret. Empty inputs never match.
func Verify(secret, digest string) bool {
	if secret == "" || digest == "" {
		return false
	}
	if isBcrypt(digest) {
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(secret)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(Hash(secret)), []byte(digest)) == 1
}

// Verifier checks a secret against a stored digest
type Verifier interface {
	Verify(secret, digest string) bool
}

// Hasher creates digests for new accounts
type Hasher interface {
	Verifier
	Hash(secret string) (string, error)
	Scheme() string
}

// SHA256Hasher produces the legacy deterministic hex digests
type SHA256Hasher struct{}

func (SHA256Hasher) Hash(secret string) (string, error) {
	return Hash(secret), nil
}

func (SHA256Hasher) Verify(secret, digest string) bool {
	return Verify(secret, digest)
}

func (SHA256Hasher) Scheme() string { return SchemeSHA256 }

// BcryptHasher produces salted bcrypt digests
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(secret string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (BcryptHasher) Verify(secret, digest string) bool {
	return Verify(secret, digest)
}

func (BcryptHasher) Scheme() string { return SchemeBcrypt }

// New returns the Hasher for scheme. cost only applies to bcrypt.
func New(scheme string, cost int) (Hasher, error) {
	switch strings.ToLower(scheme) {
	case "", SchemeSHA256:
		return SHA256Hasher{}, nil
	case SchemeBcrypt:
		if cost != 0 && (cost < bcrypt.MinCost || cost > bcrypt.MaxCost) {
			return nil, fmt.Errorf("bcrypt cost must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, cost)
		}
		return BcryptHasher{Cost: cost}, nil
	default:
		return nil, fmt.Errorf("unknown hash scheme %q", scheme)
	}
}

func isBcrypt(digest string) bool {
	return strings.HasPrefix(digest, "$2a$") ||
		strings.HasPrefix(digest, "$2b$") ||
		strings.HasPrefix(digest, "$2y$")
}

// ValidateUsername checks the format required for new accounts
func ValidateUsername(username string) error {
	switch {
	case username == "":
		return model.NewValidationError("username", "Please enter a username")
	case len(username) < MinUsernameLength:
		return model.NewValidationError("username", "Username must be at least 3 characters long")
	case len(username) > MaxUsernameLength:
		return model.NewValidationError("username", "Username must be at most 20 characters long")
	case !usernamePattern.MatchString(username):
		return model.NewValidationError("username", "Username can only contain letters, numbers, and underscores")
	}
	return nil
}

// ValidatePassword checks the minimum strength required for new accounts
func ValidatePassword(pw string) error {
	switch {
	case pw == "":
		return model.NewValidationError("password", "Please enter a password")
	case len(pw) < MinPasswordLength:
		return model.NewValidationError("password", "Password must be at least 4 characters long")
	}
	return nil
}
