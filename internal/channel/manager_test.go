package channel

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"
)

func newTestManager(t *testing.T, heartbeat time.Duration) (*Manager, *fakeDialer, *fakeClock) {
	t.Helper()
	dialer := &fakeDialer{}
	clock := &fakeClock{}
	cfg := DefaultConfig()
	cfg.URL = "ws://dashboard.test/ws"
	cfg.HeartbeatInterval = heartbeat

	m := NewManager(cfg, nil, WithDialer(dialer), WithClock(clock))
	t.Cleanup(m.Disconnect)
	return m, dialer, clock
}

// recorder collects payloads delivered to a listener.
type recorder struct {
	mu       sync.Mutex
	payloads []Payload
}

func (r *recorder) listen(p Payload) {
	r.mu.Lock()
	r.payloads = append(r.payloads, p)
	r.mu.Unlock()
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads)
}

func (r *recorder) all() []Payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Payload(nil), r.payloads...)
}

func TestManager_ConnectIdempotent(t *testing.T) {
	m, dialer, _ := newTestManager(t, 0)

	m.Connect()
	m.Connect()
	waitFor(t, "connected", m.IsConnected)

	m.Connect()

	if got := dialer.dialCount(); got != 1 {
		t.Errorf("expected 1 dial, got %d", got)
	}
	if m.State() != StateConnected {
		t.Errorf("expected state connected, got %s", m.State())
	}
}

func TestManager_BackoffSequence(t *testing.T) {
	m, dialer, clock := newTestManager(t, 0)
	dialer.setFail(true)

	m.Connect()

	for attempt := 1; attempt <= 5; attempt++ {
		want := time.Duration(attempt) * time.Second
		waitFor(t, "retry timer", func() bool {
			p := clock.pending()
			return len(p) == 1 && p[0] == want
		})
		if got := m.Attempt(); got != attempt {
			t.Fatalf("attempt %d: counter is %d", attempt, got)
		}
		if m.State() != StateReconnecting {
			t.Fatalf("attempt %d: expected reconnecting, got %s", attempt, m.State())
		}
		clock.Advance(want)
	}

	waitFor(t, "exhausted", m.Exhausted)

	if p := clock.pending(); len(p) != 0 {
		t.Errorf("expected no retry after exhaustion, got %v", p)
	}
	if m.State() != StateDisconnected {
		t.Errorf("expected disconnected, got %s", m.State())
	}
	if got := dialer.dialCount(); got != 6 {
		t.Errorf("expected 6 dials, got %d", got)
	}
}

func TestManager_ResetAfterSuccess(t *testing.T) {
	m, dialer, clock := newTestManager(t, 0)
	dialer.setFail(true)

	m.Connect()
	waitFor(t, "first retry", func() bool { return len(clock.pending()) == 1 })
	clock.Advance(time.Second)
	waitFor(t, "second retry", func() bool {
		p := clock.pending()
		return len(p) == 1 && p[0] == 2*time.Second
	})

	dialer.setFail(false)
	clock.Advance(2 * time.Second)
	waitFor(t, "connected", m.IsConnected)

	if got := m.Attempt(); got != 0 {
		t.Fatalf("expected counter reset, got %d", got)
	}

	dialer.last().drop()

	waitFor(t, "retry after drop", func() bool {
		p := clock.pending()
		return len(p) == 1 && p[0] == time.Second
	})
	if got := m.Attempt(); got != 1 {
		t.Errorf("expected attempt 1, got %d", got)
	}
}

func TestManager_ConnectAfterExhaustion(t *testing.T) {
	m, dialer, clock := newTestManager(t, 0)
	dialer.setFail(true)

	m.Connect()
	for i := 1; i <= 5; i++ {
		want := time.Duration(i) * time.Second
		waitFor(t, "retry timer", func() bool {
			p := clock.pending()
			return len(p) == 1 && p[0] == want
		})
		clock.Advance(want)
	}
	waitFor(t, "exhausted", m.Exhausted)

	m.Connect()

	waitFor(t, "fresh retry", func() bool {
		p := clock.pending()
		return len(p) == 1 && p[0] == time.Second
	})
	if m.Exhausted() {
		t.Error("expected exhausted flag cleared")
	}
}

func TestManager_ConnectWhileReconnecting(t *testing.T) {
	m, dialer, clock := newTestManager(t, 0)
	dialer.setFail(true)

	m.Connect()
	waitFor(t, "retry timer", func() bool { return len(clock.pending()) == 1 })

	dialer.setFail(false)
	m.Connect()
	waitFor(t, "connected", m.IsConnected)
	waitFor(t, "retry cancelled", func() bool { return len(clock.pending()) == 0 })

	clock.Advance(time.Second)

	if got := dialer.dialCount(); got != 2 {
		t.Errorf("expected 2 dials, got %d", got)
	}
}

func TestManager_DispatchOrder(t *testing.T) {
	m, dialer, _ := newTestManager(t, 0)

	var mu sync.Mutex
	var order []int
	for i := 1; i <= 3; i++ {
		m.Subscribe(TopicTaskStatusUpdate, func(Payload) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}

	m.Connect()
	waitFor(t, "connected", m.IsConnected)
	dialer.last().deliver(`{"type":"task_status_update","data":{"id":"t1","status":"running"}}`)

	waitFor(t, "dispatch", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	})

	mu.Lock()
	defer mu.Unlock()
	if !reflect.DeepEqual(order, []int{1, 2, 3}) {
		t.Errorf("expected registration order, got %v", order)
	}
}

func TestManager_TopicIsolation(t *testing.T) {
	m, dialer, _ := newTestManager(t, 0)

	tasks := &recorder{}
	logs := &recorder{}
	m.Subscribe(TopicTaskStatusUpdate, tasks.listen)
	m.Subscribe(TopicLogEntry, logs.listen)

	m.Connect()
	waitFor(t, "connected", m.IsConnected)

	conn := dialer.last()
	conn.deliver(`{"type":"task_status_update","data":{"id":"t1","status":"running"}}`)
	conn.deliver(`{"type":"log_entry","data":{"timestamp":"2024-01-01 10:00:00","level":"INFO","message":"started"}}`)

	waitFor(t, "log entry", func() bool { return logs.len() == 1 })

	if tasks.len() != 1 {
		t.Errorf("expected 1 task update, got %d", tasks.len())
	}
	if _, ok := logs.all()[0].(LogEntryEvent); !ok {
		t.Errorf("log listener received %T", logs.all()[0])
	}
}

func TestManager_Unsubscribe(t *testing.T) {
	m, dialer, _ := newTestManager(t, 0)

	removed := &recorder{}
	kept := &recorder{}
	sub := m.Subscribe(TopicTaskStatusUpdate, removed.listen)
	m.Subscribe(TopicTaskStatusUpdate, kept.listen)
	m.Unsubscribe(sub)
	m.Unsubscribe(sub)

	m.Connect()
	waitFor(t, "connected", m.IsConnected)
	dialer.last().deliver(`{"type":"task_status_update","data":{"id":"t1","status":"running"}}`)

	waitFor(t, "dispatch", func() bool { return kept.len() == 1 })
	if removed.len() != 0 {
		t.Errorf("unsubscribed listener called %d times", removed.len())
	}
}

func TestManager_MalformedFramesDropped(t *testing.T) {
	m, dialer, _ := newTestManager(t, 0)

	tasks := &recorder{}
	m.Subscribe(TopicTaskStatusUpdate, tasks.listen)

	m.Connect()
	waitFor(t, "connected", m.IsConnected)

	conn := dialer.last()
	conn.deliver(`not json`)
	conn.deliver(`{"data":{"id":"t1"}}`)
	conn.deliver(`{"type":"task_status_update","data":{"status":"running"}}`)
	conn.deliver(`{"type":"task_status_update","data":{"id":"t2","status":"completed"}}`)

	waitFor(t, "valid frame", func() bool { return tasks.len() == 1 })

	update := tasks.all()[0].(TaskStatusUpdate)
	if update.Task.ID != "t2" {
		t.Errorf("expected t2, got %s", update.Task.ID)
	}
	if !m.IsConnected() {
		t.Error("malformed frames should not close the channel")
	}
}

func TestManager_SendWhenDisconnected(t *testing.T) {
	m, dialer, _ := newTestManager(t, 0)

	m.Send(Outbound{Type: "subscribe", Data: map[string]string{"task_id": "t1"}})

	m.Connect()
	waitFor(t, "connected", m.IsConnected)

	m.Send(Outbound{Type: "subscribe", Data: map[string]string{"task_id": "t2"}})

	got := dialer.last().written()
	want := []string{`{"type":"subscribe","data":{"task_id":"t2"}}`}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestManager_Disconnect(t *testing.T) {
	m, dialer, clock := newTestManager(t, 0)

	tasks := &recorder{}
	m.Subscribe(TopicTaskStatusUpdate, tasks.listen)

	m.Connect()
	waitFor(t, "connected", m.IsConnected)
	conn := dialer.last()

	m.Disconnect()

	if m.State() != StateDisconnected {
		t.Errorf("expected disconnected, got %s", m.State())
	}
	if !conn.isClosed() {
		t.Error("expected transport closed")
	}
	if n := m.dispatcher.Count(TopicTaskStatusUpdate); n != 0 {
		t.Errorf("expected listeners cleared, got %d", n)
	}

	clock.Advance(10 * time.Second)
	if got := dialer.dialCount(); got != 1 {
		t.Errorf("expected no reconnect after disconnect, got %d dials", got)
	}
	if p := clock.pending(); len(p) != 0 {
		t.Errorf("expected no timers, got %v", p)
	}
}

func TestManager_StateNotifications(t *testing.T) {
	m, dialer, _ := newTestManager(t, 0)

	states := &recorder{}
	m.Subscribe(TopicChannelState, states.listen)

	m.Connect()
	waitFor(t, "connected", func() bool { return states.len() == 2 })

	dialer.setFail(true)
	dialer.last().drop()
	waitFor(t, "reconnecting", func() bool { return states.len() == 3 })

	var got []State
	for _, p := range states.all() {
		got = append(got, p.(StateChange).State)
	}
	want := []State{StateConnecting, StateConnected, StateReconnecting}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if change := states.all()[2].(StateChange); change.Attempt != 1 {
		t.Errorf("expected attempt 1, got %d", change.Attempt)
	}
}

func TestManager_Heartbeat(t *testing.T) {
	m, dialer, clock := newTestManager(t, 30*time.Second)
	dialer.setFail(false)

	m.Connect()
	waitFor(t, "connected", m.IsConnected)
	conn := dialer.last()

	waitFor(t, "initial ping", func() bool { return len(conn.written()) == 1 })
	if got := conn.written()[0]; got != `{"type":"ping"}` {
		t.Fatalf("expected ping, got %s", got)
	}

	waitFor(t, "heartbeat timer", func() bool {
		p := clock.pending()
		return len(p) == 1 && p[0] == 30*time.Second
	})
	clock.Advance(30 * time.Second)

	if got := len(conn.written()); got != 2 {
		t.Fatalf("expected 2 pings, got %d", got)
	}

	dialer.setFail(true)
	conn.drop()
	waitFor(t, "reconnecting", func() bool { return m.State() == StateReconnecting })

	clock.Advance(60 * time.Second)

	if got := len(conn.written()); got != 2 {
		t.Errorf("expected no ping after close, got %d writes", got)
	}
}

func TestManager_StartStop(t *testing.T) {
	m, dialer, _ := newTestManager(t, 0)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, "connected", m.IsConnected)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if !dialer.last().isClosed() {
		t.Error("expected transport closed")
	}
}

func TestManager_ParentCancel(t *testing.T) {
	m, dialer, clock := newTestManager(t, 0)

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	waitFor(t, "connected", m.IsConnected)

	cancel()

	waitFor(t, "disconnected", func() bool { return m.State() == StateDisconnected })
	if p := clock.pending(); len(p) != 0 {
		t.Errorf("expected no retry after cancel, got %v", p)
	}
	if got := dialer.dialCount(); got != 1 {
		t.Errorf("expected 1 dial, got %d", got)
	}
}

func TestManager_ParentCancelWhileReconnecting(t *testing.T) {
	m, dialer, clock := newTestManager(t, 0)
	dialer.setFail(true)

	states := &recorder{}
	m.Subscribe(TopicChannelState, states.listen)

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)

	waitFor(t, "retry timer", func() bool { return len(clock.pending()) == 1 })
	if m.State() != StateReconnecting {
		t.Fatalf("expected reconnecting, got %s", m.State())
	}

	cancel()
	waitFor(t, "disconnected", func() bool { return m.State() == StateDisconnected })
	waitFor(t, "disconnected notification", func() bool {
		all := states.all()
		last, ok := all[len(all)-1].(StateChange)
		return ok && last.State == StateDisconnected
	})

	clock.Advance(10 * time.Second)
	if got := dialer.dialCount(); got != 1 {
		t.Errorf("expected no dial after cancel, got %d dials", got)
	}
	if p := clock.pending(); len(p) != 0 {
		t.Errorf("expected no pending retry, got %v", p)
	}
	if m.Exhausted() {
		t.Error("cancel is not exhaustion")
	}
}

func TestManager_ExhaustionCarriesLimit(t *testing.T) {
	m, dialer, clock := newTestManager(t, 0)
	dialer.setFail(true)

	states := &recorder{}
	m.Subscribe(TopicChannelState, states.listen)
	m.Connect()

	for attempt := 1; attempt <= 5; attempt++ {
		want := time.Duration(attempt) * time.Second
		waitFor(t, "retry timer", func() bool {
			p := clock.pending()
			return len(p) == 1 && p[0] == want
		})
		clock.Advance(want)
	}
	waitFor(t, "exhausted", m.Exhausted)

	all := states.all()
	last := all[len(all)-1].(StateChange)
	if !last.Exhausted || last.MaxAttempts != 5 {
		t.Errorf("unexpected final state change %+v", last)
	}
}
