package signal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestSignalCoalesces(t *testing.T) {
	s := NewSignal()
	s.Set()
	s.Set()
	s.Set()

	if !s.TryWait() {
		t.Fatal("expected signal to be set")
	}
	if s.TryWait() {
		t.Fatal("repeated Set calls should collapse into one")
	}
}

func TestSignalWaitBlocksUntilSet(t *testing.T) {
	s := NewSignal()
	woke := make(chan struct{})
	go func() {
		s.Wait()
		close(woke)
	}()

	select {
	case <-woke:
		t.Fatal("Wait returned before Set")
	case <-time.After(20 * time.Millisecond):
	}

	s.Set()
	select {
	case <-woke:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Set")
	}
}

func TestSignalWaitContext(t *testing.T) {
	s := NewSignal()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := s.WaitContext(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("WaitContext = %v, want deadline exceeded", err)
	}

	s.Set()
	if err := s.WaitContext(context.Background()); err != nil {
		t.Fatalf("WaitContext after Set = %v, want nil", err)
	}
}

func TestGuardReleasesOnPanic(t *testing.T) {
	g := NewGuard()

	func() {
		defer func() { _ = recover() }()
		g.Do(func() { panic("boom") })
	}()

	acquired := make(chan struct{})
	go func() {
		g.Do(func() {})
		close(acquired)
	}()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("guard still held after panic")
	}
}

func TestGuardDoErr(t *testing.T) {
	g := NewGuard()
	want := errors.New("unknown mesh")
	if err := g.DoErr(func() error { return want }); !errors.Is(err, want) {
		t.Fatalf("DoErr = %v, want %v", err, want)
	}
	// lock must be free again
	if err := g.DoErr(func() error { return nil }); err != nil {
		t.Fatalf("DoErr = %v", err)
	}
}

func TestGuardMutualExclusion(t *testing.T) {
	g := NewGuard()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Do(func() { counter++ })
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Fatalf("counter = %d, want 50", counter)
	}
}

func TestSpawnClosesDone(t *testing.T) {
	ran := false
	done := Spawn("test", 0, func() { ran = true })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("done channel not closed")
	}
	if !ran {
		t.Fatal("fn did not run")
	}
}
