package channel

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/rickgao/autofilm-dash/internal/model"
)

// Payload is the typed body of an inbound envelope. The set of
// implementations is closed; unknown topics decode to RawPayload.
type Payload interface {
	isPayload()
}

// TaskStatusUpdate carries a task record pushed by the server.
type TaskStatusUpdate struct {
	Task model.TaskStatus
}

// LogEntryEvent carries one line from the log stream.
type LogEntryEvent struct {
	Entry model.LogEntry
}

// Pong answers a heartbeat ping.
type Pong struct {
	Timestamp float64
}

// ServerError is an error notice from the server.
type ServerError struct {
	Message string
}

// RawPayload is the undecoded body of a topic without a typed variant.
type RawPayload struct {
	Data json.RawMessage
}

// StateChange is dispatched locally on TopicChannelState.
type StateChange struct {
	State       State
	Attempt     int // Reconnect counter at the transition
	MaxAttempts int // Configured retry limit
	Exhausted   bool
}

func (TaskStatusUpdate) isPayload() {}
func (LogEntryEvent) isPayload()    {}
func (Pong) isPayload()             {}
func (ServerError) isPayload()      {}
func (RawPayload) isPayload()       {}
func (StateChange) isPayload()      {}

// Envelope is a decoded inbound message.
type Envelope struct {
	Topic   string
	Payload Payload
	Message string
}

// Outbound is a message sent to the server.
type Outbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Ping is the heartbeat probe.
var Ping = Outbound{Type: TopicPing}

// DecodeError reports why an inbound frame was rejected.
type DecodeError struct {
	Topic  string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Topic != "" {
		return fmt.Sprintf("decode %s: %s", e.Topic, e.Reason)
	}
	return "decode: " + e.Reason
}

// Unwrap lets errors.Is match ErrMalformed.
func (e *DecodeError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformed, e.Err}
	}
	return []error{ErrMalformed}
}

// wireEnvelope is the JSON shape of every frame.
type wireEnvelope struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type pongWire struct {
	Timestamp float64 `json:"timestamp"`
}

// Codec converts between wire frames and envelopes.
type Codec struct{}

// Decode parses a raw frame. It never panics; any malformed input yields a
// *DecodeError.
func (Codec) Decode(raw []byte) (Envelope, error) {
	var wire wireEnvelope
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Envelope{}, &DecodeError{Reason: "invalid json", Err: err}
	}
	if wire.Type == "" {
		return Envelope{}, &DecodeError{Reason: "missing type"}
	}

	// data falls back to the whole envelope when absent.
	body := []byte(wire.Data)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		body = raw
	}

	env := Envelope{Topic: wire.Type, Message: wire.Message}

	switch wire.Type {
	case TopicTaskStatusUpdate:
		var task model.TaskStatus
		if err := json.Unmarshal(body, &task); err != nil {
			return Envelope{}, &DecodeError{Topic: wire.Type, Reason: "invalid task record", Err: err}
		}
		if task.ID == "" {
			return Envelope{}, &DecodeError{Topic: wire.Type, Reason: "task record without id"}
		}
		env.Payload = TaskStatusUpdate{Task: task}

	case TopicLogEntry:
		var entry model.LogEntry
		if err := json.Unmarshal(body, &entry); err != nil {
			return Envelope{}, &DecodeError{Topic: wire.Type, Reason: "invalid log entry", Err: err}
		}
		env.Payload = LogEntryEvent{Entry: entry}

	case TopicPong:
		var p pongWire
		if err := json.Unmarshal(body, &p); err != nil {
			return Envelope{}, &DecodeError{Topic: wire.Type, Reason: "invalid pong", Err: err}
		}
		env.Payload = Pong{Timestamp: p.Timestamp}

	case TopicError:
		env.Payload = ServerError{Message: wire.Message}

	default:
		env.Payload = RawPayload{Data: append(json.RawMessage(nil), body...)}
	}

	return env, nil
}

// Encode serializes an outbound message.
func (Codec) Encode(msg Outbound) ([]byte, error) {
	if msg.Type == "" {
		return nil, fmt.Errorf("encode: %w: missing type", ErrMalformed)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Type, err)
	}
	return data, nil
}
