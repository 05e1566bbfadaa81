package state

import (
	"sync"
	"testing"
)

type pending struct {
	step   string
	target int64
}

func TestStorePutOverwrites(t *testing.T) {
	s := NewStore[pending]()
	s.Put(1, pending{step: "credits", target: 42})
	s.Put(1, pending{step: "broadcast"})

	got, ok := s.Peek(1)
	if !ok {
		t.Fatalf("expected session for actor 1")
	}
	if got.step != "broadcast" || got.target != 0 {
		t.Fatalf("expected overwritten session, got %+v", got)
	}
	if s.Len() != 1 {
		t.Fatalf("expected one session, got %d", s.Len())
	}
}

func TestStoreTakeRemoves(t *testing.T) {
	s := NewStore[pending]()
	s.Put(7, pending{step: "validity", target: 9})

	got, ok := s.Take(7)
	if !ok || got.target != 9 {
		t.Fatalf("unexpected take result: %+v ok=%v", got, ok)
	}
	if s.InProgress(7) {
		t.Fatalf("session must be removed by Take")
	}
	if _, ok := s.Take(7); ok {
		t.Fatalf("second Take must find nothing")
	}
}

func TestStoreActorsAreIndependent(t *testing.T) {
	s := NewStore[pending]()
	s.Put(1, pending{step: "a"})
	s.Put(2, pending{step: "b"})
	s.Clear(1)

	if s.InProgress(1) {
		t.Fatalf("actor 1 should be cleared")
	}
	if got, ok := s.Peek(2); !ok || got.step != "b" {
		t.Fatalf("actor 2 session lost: %+v ok=%v", got, ok)
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore[int]()
	var wg sync.WaitGroup
	for i := int64(1); i <= 50; i++ {
		wg.Add(1)
		go func(actor int64) {
			defer wg.Done()
			s.Put(actor, int(actor))
			if v, ok := s.Take(actor); !ok || v != int(actor) {
				t.Errorf("actor %d: got %d ok=%v", actor, v, ok)
			}
		}(i)
	}
	wg.Wait()
	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d", s.Len())
	}
}
