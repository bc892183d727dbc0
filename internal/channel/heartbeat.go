package channel

import (
	"context"
	"sync"
	"time"
)

// heartbeat sends a probe immediately and then once per interval while the
// transport it was started for is still live. It stops when its scope is
// cancelled, or at the first tick that finds the transport gone.
type heartbeat struct {
	clock    Clock
	interval time.Duration
	ready    func() bool
	send     func()

	mu        sync.Mutex
	timer     Timer
	stopped   bool
	stopScope func() bool
}

func startHeartbeat(ctx context.Context, clock Clock, interval time.Duration, ready func() bool, send func()) *heartbeat {
	hb := &heartbeat{
		clock:    clock,
		interval: interval,
		ready:    ready,
		send:     send,
	}

	if ready() {
		send()
	}

	stopScope := context.AfterFunc(ctx, hb.Stop)

	hb.mu.Lock()
	hb.stopScope = stopScope
	hb.schedule()
	hb.mu.Unlock()

	return hb
}

// schedule arms the next tick. Must be called with mu held.
func (hb *heartbeat) schedule() {
	if hb.stopped {
		return
	}
	hb.timer = hb.clock.AfterFunc(hb.interval, hb.tick)
}

func (hb *heartbeat) tick() {
	hb.mu.Lock()
	if hb.stopped {
		hb.mu.Unlock()
		return
	}
	hb.mu.Unlock()

	if !hb.ready() {
		hb.Stop()
		return
	}
	hb.send()

	hb.mu.Lock()
	hb.schedule()
	hb.mu.Unlock()
}

// Stop cancels the pending tick. Safe to call more than once.
func (hb *heartbeat) Stop() {
	hb.mu.Lock()
	defer hb.mu.Unlock()

	if hb.stopped {
		return
	}
	hb.stopped = true
	if hb.timer != nil {
		hb.timer.Stop()
	}
	if hb.stopScope != nil {
		hb.stopScope()
	}
}
