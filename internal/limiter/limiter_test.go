package limiter

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAllow(t *testing.T) {
	s := New(2)
	r1, ok1 := s.Allow("export")
	_, ok2 := s.Allow("EXPORT")
	_, ok3 := s.Allow("export")
	if !ok1 || !ok2 || ok3 {
		t.Fatalf("Allow() = %v, %v, %v, want true, true, false", ok1, ok2, ok3)
	}
	if _, ok := s.Allow("other"); !ok {
		t.Error("Allow(other) = false, keys must be independent")
	}
	r1()
	if got := s.InUse("export"); got != 1 {
		t.Errorf("InUse() = %d, want 1", got)
	}
	if _, ok := s.Allow("export"); !ok {
		t.Error("Allow() after release = false")
	}
}

func TestAcquireWaits(t *testing.T) {
	s := New(1)
	release, err := s.Acquire(context.Background(), "k")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := s.Acquire(ctx, "k"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Acquire() on a full key error = %v, want deadline exceeded", err)
	}

	got := make(chan error, 1)
	go func() {
		r, err := s.Acquire(context.Background(), "k")
		if err == nil {
			r()
		}
		got <- err
	}()
	release()
	select {
	case err := <-got:
		if err != nil {
			t.Errorf("Acquire() after release error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Acquire() did not return after release")
	}
}
