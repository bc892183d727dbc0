package dashboard

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/rickgao/autofilm-dash/internal/channel"
	"github.com/rickgao/autofilm-dash/internal/poller"
)

// StatusIndicator reports connection transitions and server health.
type StatusIndicator struct {
	mu        sync.RWMutex
	state     channel.State
	exhausted bool
	health    string

	attach attachment
	print  *printer
}

// NewStatusIndicator creates an indicator that writes to out.
func NewStatusIndicator(out io.Writer) *StatusIndicator {
	return &StatusIndicator{print: newPrinter(out)}
}

// Attach subscribes the indicator to channel_state on s.
func (s *StatusIndicator) Attach(src Subscriber) {
	s.attach.attach(src, s.Listen, channel.TopicChannelState)
}

// Detach removes the indicator's subscription.
func (s *StatusIndicator) Detach() {
	s.attach.detach()
}

// Listen applies a channel_state payload.
func (s *StatusIndicator) Listen(p channel.Payload) {
	change, ok := p.(channel.StateChange)
	if !ok {
		return
	}

	s.mu.Lock()
	s.state = change.State
	s.exhausted = change.Exhausted
	s.mu.Unlock()

	switch {
	case change.Exhausted:
		s.print.printf("connection lost after %d attempts, disconnected; restart to retry", change.MaxAttempts)
	case change.State == channel.StateReconnecting:
		s.print.printf("connection %s (attempt %d)", change.State, change.Attempt)
	default:
		s.print.printf("connection %s", change.State)
	}
}

// HandleSnapshot prints a health summary. It satisfies poller.SnapshotHandler.
func (s *StatusIndicator) HandleSnapshot(snap poller.Snapshot) {
	line := FormatSnapshot(snap)

	s.mu.Lock()
	changed := line != s.health
	s.health = line
	s.mu.Unlock()

	if changed {
		s.print.printf("%s", line)
	}
}

// State returns the last reported connection state.
func (s *StatusIndicator) State() channel.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Exhausted reports whether the last transition gave up reconnecting.
func (s *StatusIndicator) Exhausted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exhausted
}

// FormatSnapshot renders a poll result on one line.
func FormatSnapshot(snap poller.Snapshot) string {
	if snap.Health == nil {
		if snap.Err != nil {
			return fmt.Sprintf("health unavailable: %v", snap.Err)
		}
		return "health unavailable"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "health %s", snap.Health.Status)

	if n := len(snap.Health.Components); n > 0 {
		names := make([]string, 0, n)
		for name := range snap.Health.Components {
			names = append(names, name)
		}
		sort.Strings(names)

		parts := make([]string, 0, n)
		for _, name := range names {
			parts = append(parts, name+"="+snap.Health.Components[name])
		}
		fmt.Fprintf(&sb, " (%s)", strings.Join(parts, " "))
	}

	if snap.Stats != nil {
		for _, key := range []string{"alist2strm_tasks", "ani2alist_tasks"} {
			if v, ok := snap.Stats.Stats[key]; ok {
				fmt.Fprintf(&sb, " %s=%v", key, v)
			}
		}
	}
	return sb.String()
}
