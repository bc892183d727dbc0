package channel

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected = errors.New("not connected")
	ErrMalformed    = errors.New("malformed message")
	ErrClosed       = errors.New("connection closed")
	ErrInvalidURL   = errors.New("invalid endpoint url")
)

// State is the connection state of a Manager.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	}
	return "unknown"
}

// Known topics.
const (
	TopicTaskStatusUpdate = "task_status_update"
	TopicLogEntry         = "log_entry"
	TopicPing             = "ping"
	TopicPong             = "pong"
	TopicError            = "error"

	// TopicChannelState is dispatched locally on every state transition.
	TopicChannelState = "channel_state"
)

// Config configures a Manager.
type Config struct {
	URL                  string        // ws:// or wss:// endpoint
	HeartbeatInterval    time.Duration // Ping interval; <= 0 disables heartbeats
	ReconnectBaseDelay   time.Duration // Delay unit for linear backoff
	MaxReconnectAttempts int           // Retries before the channel is exhausted
	WriteTimeout         time.Duration // Write deadline for sends
	HandshakeTimeout     time.Duration // WebSocket handshake timeout
}

// DefaultConfig returns the dashboard defaults.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval:    30 * time.Second,
		ReconnectBaseDelay:   1 * time.Second,
		MaxReconnectAttempts: 5,
		WriteTimeout:         5 * time.Second,
		HandshakeTimeout:     10 * time.Second,
	}
}
