package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubCleaner struct {
	calls   int
	cutoffs []time.Time
	deleted int64
	err     error
}

func (s *stubCleaner) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.calls++
	s.cutoffs = append(s.cutoffs, cutoff)
	return s.deleted, s.err
}

func TestCleanupOnce(t *testing.T) {
	stub := &stubCleaner{deleted: 3}
	svc := NewCleanupService(stub, 90*24*time.Hour, time.Hour, nil)

	n, err := svc.CleanupOnce(context.Background())
	if err != nil {
		t.Fatalf("CleanupOnce: %v", err)
	}
	if n != 3 || stub.calls != 1 {
		t.Errorf("n = %d, calls = %d", n, stub.calls)
	}

	wantCutoff := time.Now().Add(-90 * 24 * time.Hour)
	if diff := stub.cutoffs[0].Sub(wantCutoff); diff < -time.Minute || diff > time.Minute {
		t.Errorf("cutoff = %v", stub.cutoffs[0])
	}
}

func TestCleanupOncePropagatesError(t *testing.T) {
	stub := &stubCleaner{err: errors.New("db down")}
	svc := NewCleanupService(stub, 0, 0, nil)
	if _, err := svc.CleanupOnce(context.Background()); err == nil {
		t.Fatal("want error")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	stub := &stubCleaner{}
	svc := NewCleanupService(stub, time.Hour, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	if stub.calls < 2 {
		t.Errorf("calls = %d, want initial run plus ticks", stub.calls)
	}
}
