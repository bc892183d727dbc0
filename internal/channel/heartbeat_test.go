package channel

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestHeartbeat_Cadence(t *testing.T) {
	clock := &fakeClock{}
	var sent atomic.Int32
	var live atomic.Bool
	live.Store(true)

	hb := startHeartbeat(context.Background(), clock, 30*time.Second, live.Load, func() { sent.Add(1) })
	defer hb.Stop()

	if got := sent.Load(); got != 1 {
		t.Fatalf("expected immediate ping, got %d", got)
	}

	clock.Advance(29 * time.Second)
	if got := sent.Load(); got != 1 {
		t.Fatalf("expected no ping before interval, got %d", got)
	}

	clock.Advance(time.Second)
	if got := sent.Load(); got != 2 {
		t.Fatalf("expected second ping at interval, got %d", got)
	}

	clock.Advance(60 * time.Second)
	if got := sent.Load(); got != 4 {
		t.Errorf("expected 4 pings, got %d", got)
	}
}

func TestHeartbeat_StopsWhenNotReady(t *testing.T) {
	clock := &fakeClock{}
	var sent atomic.Int32
	var live atomic.Bool
	live.Store(true)

	startHeartbeat(context.Background(), clock, 10*time.Second, live.Load, func() { sent.Add(1) })

	live.Store(false)
	clock.Advance(10 * time.Second)

	if got := sent.Load(); got != 1 {
		t.Errorf("expected no ping after transport closed, got %d", got)
	}
	if p := clock.pending(); len(p) != 0 {
		t.Errorf("expected no rescheduled tick, got %v", p)
	}
}

func TestHeartbeat_ScopeCancel(t *testing.T) {
	clock := &fakeClock{}
	var sent atomic.Int32

	ctx, cancel := context.WithCancel(context.Background())
	startHeartbeat(ctx, clock, 10*time.Second, func() bool { return true }, func() { sent.Add(1) })

	cancel()
	waitFor(t, "timer stopped", func() bool { return len(clock.pending()) == 0 })

	clock.Advance(time.Minute)
	if got := sent.Load(); got != 1 {
		t.Errorf("expected only the initial ping, got %d", got)
	}
}
