package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/autofilm-dash/internal/channel"
)

var errChannelDown = errors.New("channel disconnected after exhausting reconnect attempts; restart to retry")

const shutdownTimeout = 10 * time.Second

// exhaustion returns a channel closed when m gives up reconnecting. Call it
// before Start so an early failure is not missed.
func exhaustion(m *channel.Manager) <-chan struct{} {
	down := make(chan struct{})
	var once sync.Once
	m.Subscribe(channel.TopicChannelState, func(p channel.Payload) {
		if change, ok := p.(channel.StateChange); ok && change.Exhausted {
			once.Do(func() { close(down) })
		}
	})
	return down
}

// waitChannel blocks until ctx is done or down is closed.
func waitChannel(ctx context.Context, down <-chan struct{}) error {
	select {
	case <-ctx.Done():
		return nil
	case <-down:
		return errChannelDown
	}
}

// stopAll calls each stop function with a shared deadline, logging failures.
func stopAll(logger *slog.Logger, stops ...func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for _, stop := range stops {
		if err := stop(ctx); err != nil {
			logger.Warn("shutdown step failed", "error", err)
		}
	}
}
