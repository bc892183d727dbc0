package channel

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Option configures a Manager.
type Option func(*Manager)

// WithDialer replaces the WebSocket dialer.
func WithDialer(d Dialer) Option {
	return func(m *Manager) {
		m.dialer = d
	}
}

// WithClock replaces the timer source.
func WithClock(c Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

// session is the scope of one (re)connect attempt. Cancelling ctx stops the
// heartbeat, the pending retry timer and closes conn.
type session struct {
	id     uuid.UUID
	ctx    context.Context
	cancel context.CancelFunc
	conn   Conn
}

// Manager owns the channel connection and fans inbound messages out to
// subscribers. Network outcomes are reported through logs and the
// TopicChannelState topic, never through return values.
type Manager struct {
	cfg        Config
	logger     *slog.Logger
	dialer     Dialer
	clock      Clock
	codec      Codec
	dispatcher *Dispatcher
	policy     *ReconnectPolicy

	state     atomic.Int32
	exhausted atomic.Bool

	mu     sync.Mutex
	parent context.Context
	sess   *session
	closed bool // explicit Disconnect; suppresses retries

	wg sync.WaitGroup
}

// NewManager creates a disconnected Manager. Call Start or Connect to open
// the channel. A zero HeartbeatInterval disables heartbeats.
func NewManager(cfg Config, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if cfg.ReconnectBaseDelay <= 0 {
		cfg.ReconnectBaseDelay = defaults.ReconnectBaseDelay
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = defaults.MaxReconnectAttempts
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaults.HandshakeTimeout
	}

	logger = logger.With("component", "channel", "url", cfg.URL)

	m := &Manager{
		cfg:        cfg,
		logger:     logger,
		clock:      realClock{},
		dispatcher: NewDispatcher(logger),
		policy:     NewReconnectPolicy(cfg.ReconnectBaseDelay, cfg.MaxReconnectAttempts),
		parent:     context.Background(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.dialer == nil {
		m.dialer = NewWSDialer(cfg)
	}
	return m
}

// Start binds the manager to ctx and connects. Cancelling ctx tears the
// channel down without further retries.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	m.parent = ctx
	m.mu.Unlock()

	m.Connect()

	m.logger.Info("channel manager started",
		"heartbeat_interval", m.cfg.HeartbeatInterval,
		"max_reconnect_attempts", m.cfg.MaxReconnectAttempts,
	)
	return nil
}

// Stop disconnects and waits for connection goroutines to exit.
func (m *Manager) Stop(ctx context.Context) error {
	m.logger.Info("stopping channel manager")

	m.Disconnect()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("channel manager stopped")
		return nil
	case <-ctx.Done():
		m.logger.Warn("channel manager stop timed out")
		return ctx.Err()
	}
}

// Connect opens the channel. It is a no-op while connected or connecting.
// A pending retry is replaced by an immediate attempt; after exhaustion or
// Disconnect the attempt counter starts over.
func (m *Manager) Connect() {
	m.mu.Lock()
	st := m.State()
	if st == StateConnected || st == StateConnecting {
		m.mu.Unlock()
		return
	}

	if st == StateDisconnected {
		m.policy.Reset()
		m.exhausted.Store(false)
	}
	m.closed = false

	if m.sess != nil {
		m.sess.cancel()
	}
	sess := m.newSession()
	m.sess = sess
	m.setState(StateConnecting)
	change := m.stateChange()

	m.wg.Add(1)
	m.mu.Unlock()

	m.notify(change)
	go m.run(sess)
}

// Disconnect closes the transport, stops all timers and removes every
// subscription on every topic. No retry follows.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.closed = true
	sess := m.sess
	m.sess = nil

	var conn Conn
	if sess != nil {
		sess.cancel()
		conn = sess.conn
		sess.conn = nil
	}
	wasConnected := m.State() != StateDisconnected
	m.setState(StateDisconnected)
	change := m.stateChange()
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
	}

	if wasConnected {
		m.notify(change)
		m.logger.Info("channel disconnected")
	}
	m.dispatcher.Clear()
}

// Send writes msg if the channel is connected. Otherwise the message is
// dropped; there is no outbound queue.
func (m *Manager) Send(msg Outbound) {
	m.mu.Lock()
	var conn Conn
	if m.State() == StateConnected && m.sess != nil {
		conn = m.sess.conn
	}
	m.mu.Unlock()

	if conn == nil {
		m.logger.Warn("dropping outbound message, channel not connected",
			"type", msg.Type,
			"state", m.State(),
		)
		return
	}

	data, err := m.codec.Encode(msg)
	if err != nil {
		m.logger.Warn("dropping outbound message", "type", msg.Type, "error", err)
		return
	}

	if err := conn.WriteMessage(data); err != nil {
		m.logger.Warn("send failed", "type", msg.Type, "error", err)
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// IsConnected reports whether the channel is open.
func (m *Manager) IsConnected() bool {
	return m.State() == StateConnected
}

// Attempt returns the failed attempts in the current outage.
func (m *Manager) Attempt() int {
	return m.policy.Attempt()
}

// Exhausted reports whether the manager gave up reconnecting.
func (m *Manager) Exhausted() bool {
	return m.exhausted.Load()
}

// Subscribe registers listener on topic.
func (m *Manager) Subscribe(topic string, listener Listener) *Subscription {
	return m.dispatcher.Register(topic, listener)
}

// Unsubscribe removes a subscription returned by Subscribe.
func (m *Manager) Unsubscribe(sub *Subscription) {
	m.dispatcher.Unregister(sub)
}

// run dials and then reads until the transport fails.
func (m *Manager) run(sess *session) {
	defer m.wg.Done()

	logger := m.logger.With("session", sess.id)

	conn, err := m.dialer.Dial(sess.ctx, m.cfg.URL)
	if err != nil {
		logger.Warn("dial failed", "error", err)
		m.handleClose(sess, err)
		return
	}

	if !m.opened(sess, conn) {
		conn.Close()
		return
	}
	logger.Info("channel connected")

	if m.cfg.HeartbeatInterval > 0 {
		ping, _ := m.codec.Encode(Ping)
		startHeartbeat(sess.ctx, m.clock, m.cfg.HeartbeatInterval,
			func() bool { return m.isLive(sess, conn) },
			func() {
				if err := conn.WriteMessage(ping); err != nil {
					logger.Debug("failed to send ping", "error", err)
				}
			},
		)
	}

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			m.handleClose(sess, err)
			return
		}
		m.handleFrame(logger, data)
	}
}

// opened records a successful dial. It returns false if sess was
// superseded while dialing.
func (m *Manager) opened(sess *session, conn Conn) bool {
	m.mu.Lock()
	if m.sess != sess || sess.ctx.Err() != nil {
		m.mu.Unlock()
		return false
	}
	sess.conn = conn
	context.AfterFunc(sess.ctx, func() { conn.Close() })

	m.policy.Reset()
	m.exhausted.Store(false)
	m.setState(StateConnected)
	change := m.stateChange()
	m.mu.Unlock()

	m.notify(change)
	return true
}

// isLive reports whether conn is still the open transport of sess.
func (m *Manager) isLive(sess *session, conn Conn) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess == sess && sess.conn == conn && m.State() == StateConnected
}

func (m *Manager) handleFrame(logger *slog.Logger, data []byte) {
	env, err := m.codec.Decode(data)
	if err != nil {
		logger.Warn("dropping malformed message", "error", err, "size", len(data))
		return
	}
	if env.Topic == TopicPong {
		logger.Debug("pong received")
	}
	m.dispatcher.Dispatch(env.Topic, env.Payload)
}

// handleClose reacts to a dial failure or a dropped transport of sess.
func (m *Manager) handleClose(sess *session, cause error) {
	m.mu.Lock()
	if m.sess != sess {
		// Superseded by Connect or Disconnect
		m.mu.Unlock()
		return
	}

	sess.cancel()
	conn := sess.conn
	sess.conn = nil
	logger := m.logger.With("session", sess.id)

	if m.closed || m.parent.Err() != nil {
		m.sess = nil
		m.setState(StateDisconnected)
		change := m.stateChange()
		m.mu.Unlock()

		if conn != nil {
			conn.Close()
		}
		m.notify(change)
		return
	}

	delay, ok := m.policy.Next()
	attempt := m.policy.Attempt()

	if !ok {
		m.sess = nil
		m.exhausted.Store(true)
		m.setState(StateDisconnected)
		logger.Error("reconnect attempts exhausted, channel is down",
			"attempts", m.cfg.MaxReconnectAttempts,
			"error", cause,
		)
	} else {
		next := m.newSession()
		m.sess = next
		m.setState(StateReconnecting)

		timer := m.clock.AfterFunc(delay, func() { m.retry(next) })
		context.AfterFunc(next.ctx, func() {
			timer.Stop()
			m.abandon(next)
		})

		logger.Info("scheduling reconnect",
			"attempt", attempt,
			"delay", delay,
			"error", cause,
		)
	}
	change := m.stateChange()
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	m.notify(change)
}

// retry fires when a scheduled reconnect delay elapses.
func (m *Manager) retry(next *session) {
	m.mu.Lock()
	if m.sess != next || next.ctx.Err() != nil || m.closed {
		m.mu.Unlock()
		return
	}
	m.setState(StateConnecting)
	change := m.stateChange()
	m.wg.Add(1)
	m.mu.Unlock()

	m.notify(change)
	go m.run(next)
}

// abandon moves a manager waiting on next to Disconnected once the parent
// context is done. Connect and Disconnect replace m.sess before cancelling.
func (m *Manager) abandon(next *session) {
	m.mu.Lock()
	if m.sess != next || m.parent.Err() == nil {
		m.mu.Unlock()
		return
	}
	m.sess = nil
	m.setState(StateDisconnected)
	change := m.stateChange()
	m.mu.Unlock()

	m.logger.Info("channel stopped while waiting to reconnect", "session", next.id)
	m.notify(change)
}

// newSession creates a scope under the parent context. Must be called with mu held.
func (m *Manager) newSession() *session {
	ctx, cancel := context.WithCancel(m.parent)
	return &session{
		id:     uuid.New(),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (m *Manager) setState(s State) {
	m.state.Store(int32(s))
}

// stateChange snapshots the state. Must be called with mu held.
func (m *Manager) stateChange() StateChange {
	return StateChange{
		State:       m.State(),
		Attempt:     m.policy.Attempt(),
		MaxAttempts: m.cfg.MaxReconnectAttempts,
		Exhausted:   m.exhausted.Load(),
	}
}

func (m *Manager) notify(change StateChange) {
	m.dispatcher.Dispatch(TopicChannelState, change)
}
