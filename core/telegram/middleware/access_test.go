package middleware

import (
	"context"
	"errors"
	"testing"

	tele "gopkg.in/telebot.v4"
)

type fakeContext struct {
	tele.Context
	sender *tele.User
	store  map[string]any
}

func newFakeContext(userID int64) *fakeContext {
	return &fakeContext{sender: &tele.User{ID: userID}, store: map[string]any{}}
}

func (f *fakeContext) Sender() *tele.User      { return f.sender }
func (f *fakeContext) Chat() *tele.Chat        { return &tele.Chat{ID: f.sender.ID} }
func (f *fakeContext) Update() tele.Update     { return tele.Update{ID: 1} }
func (f *fakeContext) Get(key string) any      { return f.store[key] }
func (f *fakeContext) Set(key string, val any) { f.store[key] = val }

type stubChecker struct {
	admins map[int64]bool
	err    error
}

func (s stubChecker) IsAdmin(_ context.Context, id int64) (bool, error) {
	return s.admins[id], s.err
}

func TestAdminOnlyMiddleware(t *testing.T) {
	var called, rejected int
	next := func(tele.Context) error { called++; return nil }
	mw := AdminOnlyMiddleware(AdminOptions{
		Checker:  stubChecker{admins: map[int64]bool{10: true}},
		OnReject: func(tele.Context) error { rejected++; return nil },
	})
	h := mw(next)

	if err := h(newFakeContext(10)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := h(newFakeContext(11)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called != 1 || rejected != 1 {
		t.Fatalf("expected 1 call and 1 rejection, got %d/%d", called, rejected)
	}
}

func TestAdminOnlyMiddlewareLookupFailureRejects(t *testing.T) {
	called := false
	mw := AdminOnlyMiddleware(AdminOptions{
		Checker: stubChecker{err: errors.New("db down")},
	})
	h := mw(func(tele.Context) error { called = true; return nil })
	if err := h(newFakeContext(10)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Fatalf("handler must not run when the admin lookup fails")
	}
}
