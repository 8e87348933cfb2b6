package store

import (
	"context"
	"errors"
	"time"

	"github.com/quickbite/platform/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and stops callers from accidentally nesting transactions.
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic (e.g., refresh rotation).
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// This is the recommended way to handle transactions as it automatically
	// handles commit/rollback logic.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources (optional for sqlite).
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id, roles included.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is used during login. Email comparison is exact; callers
	// normalise before lookup.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user and its role rows (id is provided by app
	// via ULID). Returns ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateProfile mutates full_name and phone and bumps updated_at.
	UpdateProfile(ctx context.Context, userID, fullName, phone string) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// AddRole attaches a role to the user. Adding a role the user already
	// holds is a no-op.
	AddRole(ctx context.Context, userID, role string) error

	// RemoveRole detaches a role from the user. Removing a role the user does
	// not hold is a no-op.
	RemoveRole(ctx context.Context, userID, role string) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

type RefreshTokens interface {
	// Create stores a new refresh token record.
	Create(ctx context.Context, t domain.RefreshToken) error

	// GetByHash returns the token row by its SHA-256 fingerprint.
	GetByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// Consume atomically retires a live token during rotation, recording the
	// successor row id. Returns true when this caller won the row (it was
	// still live); false means the token was already revoked, expired or
	// never existed — re-read to classify.
	Consume(ctx context.Context, hash, successorID string, now time.Time) (bool, error)

	// Revoke flips revoked=1 for a single token. Idempotent.
	Revoke(ctx context.Context, hash string) error

	// RevokeAllForUser revokes every live token for a user and returns the
	// fingerprints it revoked so callers can purge caches.
	RevokeAllForUser(ctx context.Context, userID string) ([]string, error)

	// DeleteExpired removes rows past their expiry (housekeeping). Returns
	// the number of rows removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
