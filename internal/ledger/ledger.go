// Package ledger persists bot users (credit balance and validity window),
// administrators and the settings key/value store.
package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when the referenced user or admin does not exist.
	ErrNotFound = errors.New("ledger: not found")
	// ErrNegativeAmount rejects credit operations with an amount below zero.
	ErrNegativeAmount = errors.New("ledger: amount must be >= 0")
	// ErrInvalidDays rejects validity windows that are not at least one day long.
	ErrInvalidDays = errors.New("ledger: days must be > 0")
	// ErrBalanceOverflow rejects additions that would not fit in the balance.
	ErrBalanceOverflow = errors.New("ledger: balance would overflow")
)

// User is a bot user as seen by the admin panel.
// ValidityStartAt and ValidityExpireAt are either both set or both nil.
type User struct {
	ID               int64
	Username         *string
	Credits          int64
	ValidityStartAt  *time.Time
	ValidityExpireAt *time.Time
	CreatedAt        time.Time
}

// Premium reports whether the user holds a validity window that has not expired at now.
func (u User) Premium(now time.Time) bool {
	return u.ValidityExpireAt != nil && u.ValidityExpireAt.After(now)
}

// Removal describes the outcome of a clamped credit removal.
type Removal struct {
	Requested int64
	Removed   int64
	Balance   int64
}

// Clamped reports whether less than the requested amount was removed.
func (r Removal) Clamped() bool { return r.Removed != r.Requested }

// Repository is the persistence contract consumed by the admin panel,
// the broadcast runner and the expiry sweeper. Every call is atomic on its own.
type Repository interface {
	EnsureUser(ctx context.Context, id int64, username *string) error
	GetUser(ctx context.Context, id int64) (User, error)
	// ListUsers returns users in creation order; limit <= 0 returns all of them.
	ListUsers(ctx context.Context, limit int) ([]User, error)
	// ListPremiumUsers returns users whose validity window is still open at now.
	ListPremiumUsers(ctx context.Context, now time.Time) ([]User, error)

	// AddCredits increments the balance and returns the new one.
	AddCredits(ctx context.Context, id, amount int64) (int64, error)
	// RemoveCredits decrements the balance, flooring it at zero.
	RemoveCredits(ctx context.Context, id, amount int64) (Removal, error)
	SetCredits(ctx context.Context, id, amount int64) error

	// SetValidity opens a window [now, now+days) replacing any existing one.
	SetValidity(ctx context.Context, id int64, days int) (User, error)
	RemoveValidity(ctx context.Context, id int64) error
	// ExpireValidity clears every window that ended at or before now and returns the affected user ids.
	ExpireValidity(ctx context.Context, now time.Time) ([]int64, error)

	IsAdmin(ctx context.Context, id int64) (bool, error)
	AddAdmin(ctx context.Context, id int64) error
	RemoveAdmin(ctx context.Context, id int64) error
	ListAdmins(ctx context.Context) ([]int64, error)

	GetSetting(ctx context.Context, key, def string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}
