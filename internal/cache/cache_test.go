package cache

import (
	"testing"
	"time"
)

func TestGetAbsentUntilFirstUpdate(t *testing.T) {
	s := NewStore()

	if _, ok := s.Get("power"); ok {
		t.Fatal("expected absent entry")
	}

	at := time.Now()
	s.Update("power", 42.0, at)

	e, ok := s.Get("power")
	if !ok {
		t.Fatal("expected entry after update")
	}
	if e.Value != 42.0 || !e.At.Equal(at) {
		t.Fatalf("entry = %+v", e)
	}
}

func TestUpdateReplaces(t *testing.T) {
	s := NewStore()
	s.Update("x", 1.0, time.Now())
	s.Update("x", 2.0, time.Now())

	e, _ := s.Get("x")
	if e.Value != 2.0 {
		t.Fatalf("value = %v, want 2", e.Value)
	}
}

func TestAllReturnsACopy(t *testing.T) {
	s := NewStore()
	s.Update("a", 1.0, time.Now())
	s.Update("b", "on", time.Now())

	all := s.All()
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}

	delete(all, "a")
	if _, ok := s.Get("a"); !ok {
		t.Fatal("mutating the snapshot must not affect the store")
	}
}
