package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rickgao/autofilm-dash/internal/channel"
	"github.com/rickgao/autofilm-dash/internal/model"
)

// fakeDB records batches and answers every Exec with one inserted row.
type fakeDB struct {
	mu      sync.Mutex
	batches [][]*pgx.QueuedQuery
	err     error
}

func (db *fakeDB) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.batches = append(db.batches, b.QueuedQueries)
	return &fakeResults{err: db.err}
}

func (db *fakeDB) rows() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for _, b := range db.batches {
		n += len(b)
	}
	return n
}

func (db *fakeDB) batchCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.batches)
}

type fakeResults struct {
	err error
}

func (r *fakeResults) Exec() (pgconn.CommandTag, error) {
	if r.err != nil {
		return pgconn.CommandTag{}, r.err
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (r *fakeResults) Query() (pgx.Rows, error) { return nil, r.err }
func (r *fakeResults) QueryRow() pgx.Row        { return nil }
func (r *fakeResults) Close() error             { return nil }

// fakeSubscriber records subscriptions made through it.
type fakeSubscriber struct {
	d *channel.Dispatcher
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{d: channel.NewDispatcher(nil)}
}

func (s *fakeSubscriber) Subscribe(topic string, l channel.Listener) *channel.Subscription {
	return s.d.Register(topic, l)
}

func (s *fakeSubscriber) Unsubscribe(sub *channel.Subscription) {
	s.d.Unregister(sub)
}

func update(id, status string) channel.TaskStatusUpdate {
	return channel.TaskStatusUpdate{Task: model.TaskStatus{
		ID:       id,
		Name:     "Movies",
		Status:   status,
		Progress: 25,
		Message:  "scanning",
	}}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestRecorder_Transform(t *testing.T) {
	r := NewRecorder(DefaultConfig(), nil, nil)
	receivedAt := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return receivedAt }

	row := r.transform(update("t1", model.TaskRunning))

	if row.TaskID != "t1" || row.TaskName != "Movies" {
		t.Errorf("unexpected identity %+v", row)
	}
	if row.Status != "running" || row.Progress != 25 || row.Message != "scanning" {
		t.Errorf("unexpected status fields %+v", row)
	}
	if row.ReceivedAt != receivedAt.UnixMicro() {
		t.Errorf("ReceivedAt = %d, want %d", row.ReceivedAt, receivedAt.UnixMicro())
	}

	other := r.transform(update("t1", model.TaskRunning))
	if row.ID == other.ID {
		t.Error("expected distinct row ids")
	}
}

func TestRecorder_IgnoresOtherPayloads(t *testing.T) {
	r := NewRecorder(DefaultConfig(), nil, nil)

	r.Listen(channel.Pong{})
	r.Listen(channel.LogEntryEvent{})

	if r.input.Len() != 0 {
		t.Errorf("expected nothing buffered, got %d", r.input.Len())
	}
}

func TestRecorder_FlushOnBatchSize(t *testing.T) {
	db := &fakeDB{}
	r := NewRecorder(Config{BatchSize: 3, FlushInterval: time.Hour, BufferSize: 8}, db, nil)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer r.Stop(context.Background())

	for i := 0; i < 3; i++ {
		r.Listen(update("t1", model.TaskRunning))
	}

	waitFor(t, "batch flush", func() bool { return db.rows() == 3 })

	if got := r.Stats().Inserts; got != 3 {
		t.Errorf("Inserts = %d, want 3", got)
	}
}

func TestRecorder_FlushOnInterval(t *testing.T) {
	db := &fakeDB{}
	r := NewRecorder(Config{BatchSize: 100, FlushInterval: 20 * time.Millisecond}, db, nil)

	r.Start(context.Background())
	defer r.Stop(context.Background())

	r.Listen(update("t1", model.TaskCompleted))

	waitFor(t, "interval flush", func() bool { return db.rows() == 1 })
}

func TestRecorder_StopFlushesRemainder(t *testing.T) {
	db := &fakeDB{}
	subs := newFakeSubscriber()
	r := NewRecorder(Config{BatchSize: 2, FlushInterval: time.Hour}, db, nil)
	r.Attach(subs)

	r.Start(context.Background())

	subs.d.Dispatch(channel.TopicTaskStatusUpdate, update("t1", model.TaskRunning))
	waitFor(t, "buffered", func() bool { return r.Stats().Recorded == 1 })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if got := db.rows(); got != 1 {
		t.Errorf("rows = %d, want 1 after final flush", got)
	}
	if n := subs.d.Count(channel.TopicTaskStatusUpdate); n != 0 {
		t.Errorf("expected recorder detached, %d listeners left", n)
	}

	r.Listen(update("t2", model.TaskRunning))
	if got := r.Stats().Dropped; got != 1 {
		t.Errorf("Dropped = %d, want 1", got)
	}
}

func TestRecorder_InsertError(t *testing.T) {
	db := &fakeDB{err: errors.New("relation does not exist")}
	r := NewRecorder(Config{BatchSize: 1, FlushInterval: time.Hour}, db, nil)

	r.Start(context.Background())
	defer r.Stop(context.Background())

	r.Listen(update("t1", model.TaskError))

	waitFor(t, "error counted", func() bool { return r.Stats().Errors == 1 })
	if got := r.Stats().Inserts; got != 0 {
		t.Errorf("Inserts = %d, want 0", got)
	}
}

func TestRecorder_AttachTwice(t *testing.T) {
	subs := newFakeSubscriber()
	r := NewRecorder(DefaultConfig(), nil, nil)

	r.Attach(subs)
	r.Attach(subs)

	if n := subs.d.Count(channel.TopicTaskStatusUpdate); n != 1 {
		t.Errorf("expected a single subscription, got %d", n)
	}
}

// slowDB blocks each batch until released and fails it if ctx was cancelled
// meanwhile, as pgx does.
type slowDB struct {
	fakeDB
	started chan struct{}
	release chan struct{}
}

func (db *slowDB) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	db.started <- struct{}{}
	<-db.release
	if err := ctx.Err(); err != nil {
		return &fakeResults{err: err}
	}
	return db.fakeDB.SendBatch(ctx, b)
}

func TestRecorder_StopDuringFlush(t *testing.T) {
	db := &slowDB{started: make(chan struct{}, 1), release: make(chan struct{})}
	r := NewRecorder(Config{BatchSize: 2, FlushInterval: time.Hour, BufferSize: 8}, db, nil)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	r.Listen(update("t1", model.TaskRunning))
	r.Listen(update("t2", model.TaskRunning))

	select {
	case <-db.started:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for batch")
	}

	stopped := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		stopped <- r.Stop(ctx)
	}()

	waitFor(t, "stop to cancel the run loop", func() bool { return r.ctx.Err() != nil })
	close(db.release)

	if err := <-stopped; err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if got := db.rows(); got != 2 {
		t.Errorf("expected in-flight batch written, got %d rows", got)
	}
	if s := r.Stats(); s.Errors != 0 || s.Inserts != 2 {
		t.Errorf("unexpected stats %+v", s)
	}
}
