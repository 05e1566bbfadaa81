package state

import (
	"context"
	"log/slog"
	"sync"

	"github.com/m3rciful/voicebot/core/logger"
)

// Store keeps at most one pending session per actor.
// Sessions live only in memory and are lost on restart.
type Store[T any] struct {
	mu       sync.Mutex
	sessions map[int64]T
}

// NewStore constructs an empty session store.
func NewStore[T any]() *Store[T] {
	return &Store[T]{sessions: make(map[int64]T)}
}

// Put opens a session for actor, overwriting any session already open.
func (s *Store[T]) Put(actor int64, session T) {
	s.mu.Lock()
	_, replaced := s.sessions[actor]
	s.sessions[actor] = session
	s.mu.Unlock()

	if replaced {
		logger.Debug(context.Background(), "tg", "fsm.overwrite",
			slog.Int64("user_id", actor),
		)
	}
}

// Take removes and returns the actor's session.
func (s *Store[T]) Take(actor int64) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[actor]
	if ok {
		delete(s.sessions, actor)
	}
	return session, ok
}

// Peek returns the actor's session without removing it.
func (s *Store[T]) Peek(actor int64) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[actor]
	return session, ok
}

// Clear drops the actor's session if one is open.
func (s *Store[T]) Clear(actor int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, actor)
}

// InProgress reports whether the actor has an open session.
func (s *Store[T]) InProgress(actor int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[actor]
	return ok
}

// Len returns the number of open sessions.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
