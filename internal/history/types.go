package history

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rickgao/autofilm-dash/internal/channel"
)

// Config controls batching.
type Config struct {
	BatchSize     int           // Rows per insert batch
	FlushInterval time.Duration // Max time a row waits before flush
	BufferSize    int           // Initial buffer capacity
}

// DefaultConfig returns the defaults used by the dashboard.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		FlushInterval: 2 * time.Second,
		BufferSize:    256,
	}
}

// Row is one recorded status change.
type Row struct {
	ID         uuid.UUID
	TaskID     string
	TaskName   string
	Status     string
	Progress   float64
	Message    string
	ReceivedAt int64 // Unix microseconds
}

// Stats are the recorder counters.
type Stats struct {
	Recorded int64 // Updates enqueued
	Dropped  int64 // Updates rejected after Stop
	Inserts  int64
	Flushes  int64
	Errors   int64
}

// Subscriber is the part of the channel manager the recorder uses.
type Subscriber interface {
	Subscribe(topic string, listener channel.Listener) *channel.Subscription
	Unsubscribe(sub *channel.Subscription)
}

// BatchSender executes insert batches. *pgxpool.Pool satisfies it.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}
