package ledger

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	coredatabase "github.com/m3rciful/voicebot/core/database"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()
	cfg := coredatabase.Config{
		Driver: coredatabase.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "ledger.db"),
	}
	if err := coredatabase.Normalize(&cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	db, err := coredatabase.Connect(cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := coredatabase.RunMigrations(cfg); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	clock := &fakeClock{t: time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)}
	return NewStore(db, WithClock(clock.Now)), clock
}

func ptr(s string) *string { return &s }

func TestEnsureUserIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	if err := s.EnsureUser(ctx, 42, ptr("alice")); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, err := s.AddCredits(ctx, 42, 10); err != nil {
		t.Fatalf("add: %v", err)
	}
	// A second ensure without username must keep both the name and the balance.
	if err := s.EnsureUser(ctx, 42, nil); err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	u, err := s.GetUser(ctx, 42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.Username == nil || *u.Username != "alice" {
		t.Fatalf("username lost: %+v", u.Username)
	}
	if u.Credits != 10 {
		t.Fatalf("expected 10 credits, got %d", u.Credits)
	}
}

func TestGetUserNotFound(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.GetUser(context.Background(), 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddCreditsAccumulates(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	for _, start := range []int64{0, 7, 1000} {
		id := 100 + start
		if err := s.EnsureUser(ctx, id, nil); err != nil {
			t.Fatalf("ensure: %v", err)
		}
		if err := s.SetCredits(ctx, id, start); err != nil {
			t.Fatalf("set: %v", err)
		}
		if _, err := s.AddCredits(ctx, id, 50); err != nil {
			t.Fatalf("add 50: %v", err)
		}
		balance, err := s.AddCredits(ctx, id, 25)
		if err != nil {
			t.Fatalf("add 25: %v", err)
		}
		if balance != start+75 {
			t.Fatalf("start %d: expected %d, got %d", start, start+75, balance)
		}
	}
}

func TestAddCreditsRejectsNegativeAndMissing(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	if _, err := s.AddCredits(ctx, 1, -1); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
	if _, err := s.AddCredits(ctx, 1, 5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddCreditsRejectsOverflow(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	if err := s.EnsureUser(ctx, 5, nil); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := s.SetCredits(ctx, 5, math.MaxInt64-10); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := s.AddCredits(ctx, 5, 11); !errors.Is(err, ErrBalanceOverflow) {
		t.Fatalf("expected ErrBalanceOverflow, got %v", err)
	}
	u, err := s.GetUser(ctx, 5)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.Credits != math.MaxInt64-10 {
		t.Fatalf("balance must be unchanged, got %d", u.Credits)
	}
	balance, err := s.AddCredits(ctx, 5, 10)
	if err != nil {
		t.Fatalf("add to the limit: %v", err)
	}
	if balance != math.MaxInt64 {
		t.Fatalf("expected max balance, got %d", balance)
	}
}

func TestRemoveCreditsClampsAtZero(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	if err := s.EnsureUser(ctx, 5, nil); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, err := s.AddCredits(ctx, 5, 30); err != nil {
		t.Fatalf("add: %v", err)
	}

	res, err := s.RemoveCredits(ctx, 5, 10)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if res.Removed != 10 || res.Balance != 20 || res.Clamped() {
		t.Fatalf("unexpected partial removal: %+v", res)
	}

	res, err = s.RemoveCredits(ctx, 5, 500)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if res.Balance != 0 || res.Removed != 20 || !res.Clamped() {
		t.Fatalf("expected clamp to zero, got %+v", res)
	}
	u, _ := s.GetUser(ctx, 5)
	if u.Credits != 0 {
		t.Fatalf("stored balance must be 0, got %d", u.Credits)
	}
}

func TestSetValidityWindow(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)
	if err := s.EnsureUser(ctx, 9, nil); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	for _, days := range []int{1, 30, 365} {
		u, err := s.SetValidity(ctx, 9, days)
		if err != nil {
			t.Fatalf("set validity: %v", err)
		}
		if u.ValidityStartAt == nil || u.ValidityExpireAt == nil {
			t.Fatalf("window must be set: %+v", u)
		}
		if got := u.ValidityExpireAt.Sub(*u.ValidityStartAt); got != time.Duration(days)*24*time.Hour {
			t.Fatalf("days=%d: window length %v", days, got)
		}
		if !u.ValidityStartAt.Equal(clock.t) {
			t.Fatalf("window must start now, got %v", u.ValidityStartAt)
		}
	}
	if _, err := s.SetValidity(ctx, 9, 0); !errors.Is(err, ErrInvalidDays) {
		t.Fatalf("expected ErrInvalidDays, got %v", err)
	}

	if err := s.RemoveValidity(ctx, 9); err != nil {
		t.Fatalf("remove validity: %v", err)
	}
	u, _ := s.GetUser(ctx, 9)
	if u.ValidityStartAt != nil || u.ValidityExpireAt != nil {
		t.Fatalf("window must be cleared: %+v", u)
	}
}

func TestPremiumListingAndExpiry(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)
	for _, id := range []int64{1, 2, 3} {
		if err := s.EnsureUser(ctx, id, nil); err != nil {
			t.Fatalf("ensure: %v", err)
		}
	}
	if _, err := s.SetValidity(ctx, 1, 1); err != nil {
		t.Fatalf("validity 1: %v", err)
	}
	if _, err := s.SetValidity(ctx, 2, 10); err != nil {
		t.Fatalf("validity 2: %v", err)
	}

	premium, err := s.ListPremiumUsers(ctx, clock.t)
	if err != nil {
		t.Fatalf("premium: %v", err)
	}
	if len(premium) != 2 || premium[0].ID != 1 {
		t.Fatalf("unexpected premium list: %+v", premium)
	}

	later := clock.t.Add(48 * time.Hour)
	expired, err := s.ExpireValidity(ctx, later)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if len(expired) != 1 || expired[0] != 1 {
		t.Fatalf("expected user 1 expired, got %v", expired)
	}
	premium, _ = s.ListPremiumUsers(ctx, later)
	if len(premium) != 1 || premium[0].ID != 2 {
		t.Fatalf("unexpected premium list after expiry: %+v", premium)
	}
}

func TestListUsersLimit(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)
	for i := int64(1); i <= 5; i++ {
		clock.t = clock.t.Add(time.Minute)
		if err := s.EnsureUser(ctx, i, nil); err != nil {
			t.Fatalf("ensure: %v", err)
		}
	}
	all, err := s.ListUsers(ctx, 0)
	if err != nil || len(all) != 5 {
		t.Fatalf("expected 5 users, got %d (%v)", len(all), err)
	}
	some, err := s.ListUsers(ctx, 2)
	if err != nil || len(some) != 2 || some[0].ID != 1 {
		t.Fatalf("unexpected limited list: %+v (%v)", some, err)
	}
}

func TestAdminsAndSettings(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	if err := s.AddAdmin(ctx, 7); err != nil {
		t.Fatalf("add admin: %v", err)
	}
	if err := s.AddAdmin(ctx, 7); err != nil {
		t.Fatalf("add admin twice: %v", err)
	}
	ok, err := s.IsAdmin(ctx, 7)
	if err != nil || !ok {
		t.Fatalf("expected admin, got %v (%v)", ok, err)
	}
	if err := s.RemoveAdmin(ctx, 8); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.RemoveAdmin(ctx, 7); err != nil {
		t.Fatalf("remove admin: %v", err)
	}
	if ids, _ := s.ListAdmins(ctx); len(ids) != 0 {
		t.Fatalf("expected no admins, got %v", ids)
	}

	v, err := s.GetSetting(ctx, "default_voice_id", "fallback")
	if err != nil || v != "fallback" {
		t.Fatalf("expected default, got %q (%v)", v, err)
	}
	if err := s.SetSetting(ctx, "default_voice_id", "a"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.SetSetting(ctx, "default_voice_id", "b"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if v, _ := s.GetSetting(ctx, "default_voice_id", ""); v != "b" {
		t.Fatalf("expected b, got %q", v)
	}
}
