package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rickgao/autofilm-dash/internal/channel"
)

const insertRow = `
	INSERT INTO task_status_history (id, task_id, task_name, status, progress, message, received_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO NOTHING
`

// Recorder listens for task status updates and writes them in batches.
type Recorder struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	input *Buffer[Row]
	db    BatchSender

	subMu sync.Mutex
	subs  Subscriber
	sub   *channel.Subscription

	// Lifecycle
	ctx      context.Context
	cancel   context.CancelFunc
	flushCtx context.Context // Not cancelled by Stop
	wg       sync.WaitGroup

	statsMu sync.Mutex
	stats   Stats
}

// NewRecorder creates a recorder writing through db.
func NewRecorder(cfg Config, db BatchSender, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaults.FlushInterval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaults.BufferSize
	}
	return &Recorder{
		cfg:    cfg,
		logger: logger.With("component", "history"),
		now:    time.Now,
		input:  NewBuffer[Row](cfg.BufferSize),
		db:     db,
	}
}

// Attach subscribes the recorder to task status updates.
func (r *Recorder) Attach(s Subscriber) {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	if r.sub != nil {
		r.subs.Unsubscribe(r.sub)
	}
	r.subs = s
	r.sub = s.Subscribe(channel.TopicTaskStatusUpdate, r.Listen)
}

// Detach removes the subscription made by Attach.
func (r *Recorder) Detach() {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	if r.sub != nil {
		r.subs.Unsubscribe(r.sub)
		r.sub = nil
		r.subs = nil
	}
}

// Listen is the channel listener. It never blocks.
func (r *Recorder) Listen(p channel.Payload) {
	update, ok := p.(channel.TaskStatusUpdate)
	if !ok {
		return
	}

	row := r.transform(update)
	accepted := r.input.Push(row)

	r.statsMu.Lock()
	if accepted {
		r.stats.Recorded++
	} else {
		r.stats.Dropped++
	}
	r.statsMu.Unlock()
}

// Start begins draining the buffer into the database.
func (r *Recorder) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.flushCtx = context.WithoutCancel(ctx)

	r.wg.Add(1)
	go r.run()

	r.logger.Info("history recorder started",
		"batch_size", r.cfg.BatchSize,
		"flush_interval", r.cfg.FlushInterval,
	)
	return nil
}

// Stop detaches, closes the buffer and flushes what is left.
func (r *Recorder) Stop(ctx context.Context) error {
	r.logger.Info("stopping history recorder")

	r.Detach()
	r.input.Close()

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("history recorder stopped")
	case <-ctx.Done():
		r.logger.Warn("history recorder stop timed out")
		return ctx.Err()
	}

	// Final flush, bounded by the caller's deadline
	for {
		rows := r.input.Drain(r.cfg.BatchSize)
		if len(rows) == 0 {
			return nil
		}
		r.flush(ctx, rows)
	}
}

// Stats returns current counters.
func (r *Recorder) Stats() Stats {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	return r.stats
}

func (r *Recorder) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-r.input.Ready():
			// Flush early only for full batches
			for r.input.Len() >= r.cfg.BatchSize {
				r.flush(r.flushCtx, r.input.Drain(r.cfg.BatchSize))
			}
		case <-ticker.C:
			for {
				rows := r.input.Drain(r.cfg.BatchSize)
				if len(rows) == 0 {
					break
				}
				r.flush(r.flushCtx, rows)
			}
		}
	}
}

// transform converts an update to a row stamped with its arrival time.
func (r *Recorder) transform(update channel.TaskStatusUpdate) Row {
	t := update.Task
	return Row{
		ID:         uuid.New(),
		TaskID:     t.ID,
		TaskName:   t.Name,
		Status:     t.Status,
		Progress:   t.Progress,
		Message:    t.Message,
		ReceivedAt: r.now().UnixMicro(),
	}
}

func (r *Recorder) flush(ctx context.Context, rows []Row) {
	if len(rows) == 0 || r.db == nil {
		return
	}

	start := time.Now()

	inserted, err := r.batchInsert(ctx, rows)
	r.statsMu.Lock()
	if err != nil {
		r.stats.Errors++
	} else {
		r.stats.Inserts += int64(inserted)
		r.stats.Flushes++
	}
	r.statsMu.Unlock()

	if err != nil {
		r.logger.Error("batch insert failed", "error", err, "count", len(rows))
		return
	}

	r.logger.Debug("flushed task history",
		"count", len(rows),
		"inserted", inserted,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (r *Recorder) batchInsert(ctx context.Context, rows []Row) (inserted int, err error) {
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(insertRow,
			row.ID, row.TaskID, row.TaskName, row.Status, row.Progress, row.Message, row.ReceivedAt)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return inserted, err
		}
		inserted += int(ct.RowsAffected())
	}

	return inserted, nil
}
