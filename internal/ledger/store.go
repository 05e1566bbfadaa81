package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/voicebot/core/logger"
)

// Store implements Repository on top of sqlx. Queries are written with '?'
// placeholders and rebound for the connected driver (postgres or sqlite).
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ Repository = (*Store)(nil)

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore wraps an open database handle.
func NewStore(db *sqlx.DB, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type userRow struct {
	ID               int64          `db:"id"`
	Username         sql.NullString `db:"username"`
	Credits          int64          `db:"credits"`
	ValidityStartAt  sql.NullInt64  `db:"validity_start_at"`
	ValidityExpireAt sql.NullInt64  `db:"validity_expire_at"`
	CreatedAt        int64          `db:"created_at"`
}

func (r userRow) toUser() User {
	u := User{
		ID:        r.ID,
		Credits:   r.Credits,
		CreatedAt: time.Unix(r.CreatedAt, 0),
	}
	if r.Username.Valid {
		name := r.Username.String
		u.Username = &name
	}
	if r.ValidityStartAt.Valid && r.ValidityExpireAt.Valid {
		start := time.Unix(r.ValidityStartAt.Int64, 0)
		expire := time.Unix(r.ValidityExpireAt.Int64, 0)
		u.ValidityStartAt = &start
		u.ValidityExpireAt = &expire
	}
	return u
}

const userColumns = `id, username, credits, validity_start_at, validity_expire_at, created_at`

func (s *Store) q(query string) string { return s.db.Rebind(query) }

// EnsureUser inserts the user when absent; a non-nil username refreshes the stored one.
func (s *Store) EnsureUser(ctx context.Context, id int64, username *string) error {
	var name sql.NullString
	if username != nil && *username != "" {
		name = sql.NullString{String: *username, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO users (id, username, credits, created_at) VALUES (?, ?, 0, ?)
		ON CONFLICT (id) DO UPDATE SET username = COALESCE(excluded.username, users.username)`),
		id, name, s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("ledger: ensure user %d: %w", id, err)
	}
	return nil
}

// GetUser loads a single user or returns ErrNotFound.
func (s *Store) GetUser(ctx context.Context, id int64) (User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, s.q(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("ledger: get user %d: %w", id, err)
	}
	return row.toUser(), nil
}

// ListUsers returns users ordered by creation time.
func (s *Store) ListUsers(ctx context.Context, limit int) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.selectUsers(ctx, "list users", query, args...)
}

// ListPremiumUsers returns users with an open validity window, soonest expiry first.
func (s *Store) ListPremiumUsers(ctx context.Context, now time.Time) ([]User, error) {
	return s.selectUsers(ctx, "list premium users", `
		SELECT `+userColumns+` FROM users
		WHERE validity_expire_at IS NOT NULL AND validity_expire_at > ?
		ORDER BY validity_expire_at, id`,
		now.Unix(),
	)
}

func (s *Store) selectUsers(ctx context.Context, op, query string, args ...any) ([]User, error) {
	var rows []userRow
	if err := s.db.SelectContext(ctx, &rows, s.q(query), args...); err != nil {
		return nil, fmt.Errorf("ledger: %s: %w", op, err)
	}
	users := make([]User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users, nil
}

// AddCredits increments the user's balance by amount and returns the new balance.
func (s *Store) AddCredits(ctx context.Context, id, amount int64) (int64, error) {
	if amount < 0 {
		return 0, ErrNegativeAmount
	}
	var balance int64
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var current int64
		err := tx.GetContext(ctx, &current, s.q(`
			UPDATE users SET credits = credits WHERE id = ? RETURNING credits`), id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if current > math.MaxInt64-amount {
			return ErrBalanceOverflow
		}
		balance = current + amount
		_, err = tx.ExecContext(ctx, s.q(`UPDATE users SET credits = ? WHERE id = ?`), balance, id)
		return err
	})
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrBalanceOverflow) {
		return 0, err
	}
	if err != nil {
		return 0, fmt.Errorf("ledger: add credits to %d: %w", id, err)
	}
	logger.LEDGER.Info("credits added",
		slog.String("event", "credits.add"),
		slog.Int64("target_id", id),
		slog.Int64("amount", amount),
		slog.Int64("balance", balance),
	)
	return balance, nil
}

// RemoveCredits decrements the balance by amount, never going below zero.
// The returned Removal carries the amount actually taken.
func (s *Store) RemoveCredits(ctx context.Context, id, amount int64) (Removal, error) {
	if amount < 0 {
		return Removal{}, ErrNegativeAmount
	}
	res := Removal{Requested: amount}
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		// The no-op update takes the row lock before reading the balance.
		var current int64
		err := tx.GetContext(ctx, &current, s.q(`
			UPDATE users SET credits = credits WHERE id = ? RETURNING credits`), id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		res.Removed = min(amount, current)
		res.Balance = current - res.Removed
		_, err = tx.ExecContext(ctx, s.q(`UPDATE users SET credits = ? WHERE id = ?`), res.Balance, id)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return Removal{}, ErrNotFound
	}
	if err != nil {
		return Removal{}, fmt.Errorf("ledger: remove credits from %d: %w", id, err)
	}
	logger.LEDGER.Info("credits removed",
		slog.String("event", "credits.remove"),
		slog.Int64("target_id", id),
		slog.Int64("amount", amount),
		slog.Int64("removed", res.Removed),
		slog.Int64("balance", res.Balance),
	)
	return res, nil
}

// SetCredits overwrites the balance.
func (s *Store) SetCredits(ctx context.Context, id, amount int64) error {
	if amount < 0 {
		return ErrNegativeAmount
	}
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE users SET credits = ? WHERE id = ?`), amount, id)
	if err != nil {
		return fmt.Errorf("ledger: set credits of %d: %w", id, err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	logger.LEDGER.Info("credits set",
		slog.String("event", "credits.set"),
		slog.Int64("target_id", id),
		slog.Int64("balance", amount),
	)
	return nil
}

// SetValidity opens a fresh window starting now and lasting days.
func (s *Store) SetValidity(ctx context.Context, id int64, days int) (User, error) {
	if days <= 0 {
		return User{}, ErrInvalidDays
	}
	start := s.now().Truncate(time.Second)
	expire := start.Add(time.Duration(days) * 24 * time.Hour)
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE users SET validity_start_at = ?, validity_expire_at = ? WHERE id = ?`),
		start.Unix(), expire.Unix(), id,
	)
	if err != nil {
		return User{}, fmt.Errorf("ledger: set validity of %d: %w", id, err)
	}
	if err := requireAffected(res); err != nil {
		return User{}, err
	}
	logger.LEDGER.Info("validity set",
		slog.String("event", "validity.set"),
		slog.Int64("target_id", id),
		slog.Int("days", days),
	)
	return s.GetUser(ctx, id)
}

// RemoveValidity clears both window timestamps.
func (s *Store) RemoveValidity(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE users SET validity_start_at = NULL, validity_expire_at = NULL WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("ledger: remove validity of %d: %w", id, err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	logger.LEDGER.Info("validity removed",
		slog.String("event", "validity.remove"),
		slog.Int64("target_id", id),
	)
	return nil
}

// ExpireValidity clears windows that ended at or before now.
func (s *Store) ExpireValidity(ctx context.Context, now time.Time) ([]int64, error) {
	var ids []int64
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.SelectContext(ctx, &ids, s.q(`
			SELECT id FROM users
			WHERE validity_expire_at IS NOT NULL AND validity_expire_at <= ?
			ORDER BY id`), now.Unix()); err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		_, err := tx.ExecContext(ctx, s.q(`
			UPDATE users SET validity_start_at = NULL, validity_expire_at = NULL
			WHERE validity_expire_at IS NOT NULL AND validity_expire_at <= ?`), now.Unix())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: expire validity: %w", err)
	}
	return ids, nil
}

// IsAdmin reports whether id is registered as an administrator.
func (s *Store) IsAdmin(ctx context.Context, id int64) (bool, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, s.q(`SELECT COUNT(*) FROM admins WHERE id = ?`), id); err != nil {
		return false, fmt.Errorf("ledger: is admin %d: %w", id, err)
	}
	return n > 0, nil
}

// AddAdmin registers id as an administrator; repeated calls are no-ops.
func (s *Store) AddAdmin(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO admins (id, created_at) VALUES (?, ?) ON CONFLICT (id) DO NOTHING`),
		id, s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("ledger: add admin %d: %w", id, err)
	}
	return nil
}

// RemoveAdmin revokes administrator rights or returns ErrNotFound.
func (s *Store) RemoveAdmin(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM admins WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("ledger: remove admin %d: %w", id, err)
	}
	return requireAffected(res)
}

// ListAdmins returns administrator ids in ascending order.
func (s *Store) ListAdmins(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := s.db.SelectContext(ctx, &ids, `SELECT id FROM admins ORDER BY id`); err != nil {
		return nil, fmt.Errorf("ledger: list admins: %w", err)
	}
	return ids, nil
}

// GetSetting returns the stored value for key, or def when it is absent.
func (s *Store) GetSetting(ctx context.Context, key, def string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, s.q(`SELECT value FROM settings WHERE key = ?`), key)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return def, fmt.Errorf("ledger: get setting %q: %w", key, err)
	}
	return value, nil
}

// SetSetting upserts a settings value.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`),
		key, value,
	)
	if err != nil {
		return fmt.Errorf("ledger: set setting %q: %w", key, err)
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
