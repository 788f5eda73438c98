package realtime

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Rrens/flexy-chat/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// CredentialSource provides the bearer credential for the chat endpoint
type CredentialSource interface {
	// Token returns the current credential, or false when the caller is
	// not authenticated.
	Token() (string, bool)
}

// Handlers receive connection events. Every field is optional.
type Handlers struct {
	OnMessage        func(frame domain.Frame)
	OnConnect        func()
	OnDisconnect     func(code int)
	OnError          func(err error)
	OnStatus         func(status domain.ConnectionStatus)
	OnRetryScheduled func(attempt int, delay time.Duration)
}

// handleState is the last known state of the connection handle, used by
// Send to decide whether a rejected send should trigger a reconnect.
type handleState int

const (
	handleNone handleState = iota
	handleConnecting
	handleOpen
	handleClosed
)

// connection is one live transport and its writer
type connection struct {
	gen       uint64
	transport Transport
	outbox    chan []byte
	ctx       context.Context
	cancel    context.CancelFunc
}

func (c *connection) shutdown(code int, reason string) {
	c.cancel()
	if err := c.transport.Close(code, reason); err != nil {
		log.Debug().Err(err).Int("code", code).Msg("transport close")
	}
}

// Manager owns the chat connection of one client. It keeps at most one
// transport open, reconnects with exponential backoff and delivers decoded
// frames to a single message handler.
type Manager struct {
	dialer   Dialer
	creds    CredentialSource
	endpoint string
	policy   Policy
	clock    clockwork.Clock
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	handlers   Handlers
	sessionID  string
	status     domain.ConnectionStatus
	connecting bool
	gen        uint64
	conn       *connection
	handle     handleState
	attempts   int
	startedAt  time.Time
	retry      clockwork.Timer
	closed     bool
}

// Option configures a Manager
type Option func(*Manager)

// WithEndpoint sets the base websocket URL, e.g. ws://host/ws
func WithEndpoint(endpoint string) Option {
	return func(m *Manager) {
		m.endpoint = strings.TrimRight(endpoint, "/")
	}
}

// WithPolicy overrides the reconnection policy
func WithPolicy(p Policy) Option {
	return func(m *Manager) {
		m.policy = p
	}
}

// WithClock sets the clock used for timestamps and timers
func WithClock(c clockwork.Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

// WithHandlers registers the event handlers
func WithHandlers(h Handlers) Option {
	return func(m *Manager) {
		m.handlers = h
	}
}

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// NewManager creates a new connection manager
func NewManager(dialer Dialer, creds CredentialSource, opts ...Option) *Manager {
	m := &Manager{
		dialer: dialer,
		creds:  creds,
		policy: DefaultPolicy(),
		clock:  clockwork.NewRealClock(),
		logger: log.Logger,
		status: domain.StatusDisconnected,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With().Str("component", "realtime").Logger()
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return m
}

// SetHandlers replaces the event handlers
func (m *Manager) SetHandlers(h Handlers) {
	m.mu.Lock()
	m.handlers = h
	m.mu.Unlock()
}

// Status returns the current connection status
func (m *Manager) Status() domain.ConnectionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// SessionID returns the session the manager is bound to
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// Connect opens a connection for sessionID. It is a no-op for an empty or
// provisional id, without credentials or endpoint, or while a connection for
// the session is already connecting or open.
func (m *Manager) Connect(sessionID string) {
	m.mu.Lock()
	if m.closed || !domain.IsRealSession(sessionID) {
		m.mu.Unlock()
		return
	}

	var stale *connection
	if m.sessionID != "" && m.sessionID != sessionID {
		stale = m.resetLocked()
		m.status = domain.StatusDisconnected
	}
	m.sessionID = sessionID

	if m.connecting || m.conn != nil {
		m.mu.Unlock()
		m.shutdown(stale)
		return
	}

	token, ok := m.creds.Token()
	if !ok || m.endpoint == "" {
		m.mu.Unlock()
		m.shutdown(stale)
		m.logger.Debug().Str("session_id", sessionID).Bool("authenticated", ok).Msg("connect skipped")
		return
	}

	m.stopRetryLocked()
	m.connecting = true
	m.gen++
	gen := m.gen
	m.startedAt = m.clock.Now()
	m.handle = handleConnecting
	m.status = domain.StatusConnecting
	h := m.handlers
	m.mu.Unlock()

	m.shutdown(stale)
	emitStatus(h, domain.StatusConnecting)

	m.logger.Info().Str("session_id", sessionID).Uint64("gen", gen).Msg("connecting")
	go m.dial(gen, m.chatURL(sessionID, token))
}

func (m *Manager) chatURL(sessionID, token string) string {
	return m.endpoint + "/chat/" + url.PathEscape(sessionID) + "?token=" + url.QueryEscape(token)
}

func (m *Manager) dial(gen uint64, target string) {
	ctx, cancel := context.WithTimeout(m.ctx, m.policy.DialTimeout)
	t, err := m.dialer.Dial(ctx, target)
	cancel()
	if err != nil {
		m.handleError(gen, err)
		m.handleClose(gen, closeCode(err))
		return
	}
	m.handleOpen(gen, t)
}

func (m *Manager) handleOpen(gen uint64, t Transport) {
	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		_ = t.Close(CloseNormal, "superseded")
		return
	}

	ctx, cancel := context.WithCancel(m.ctx)
	c := &connection{
		gen:       gen,
		transport: t,
		outbox:    make(chan []byte, m.policy.WriteBuffer),
		ctx:       ctx,
		cancel:    cancel,
	}
	m.conn = c
	m.connecting = false
	m.attempts = 0
	m.handle = handleOpen
	m.status = domain.StatusConnected
	h := m.handlers
	session := m.sessionID
	m.mu.Unlock()

	m.logger.Info().Str("session_id", session).Msg("connected")

	go m.writeLoop(c)
	go m.readLoop(c)

	emitStatus(h, domain.StatusConnected)
	if h.OnConnect != nil {
		h.OnConnect()
	}
}

func (m *Manager) readLoop(c *connection) {
	for {
		data, err := c.transport.Read(c.ctx)
		if err != nil {
			if !hasCloseFrame(err) && c.ctx.Err() == nil {
				m.handleError(c.gen, err)
			}
			m.handleClose(c.gen, closeCode(err))
			return
		}

		var frame domain.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			m.logger.Warn().Err(err).Msg("dropping malformed frame")
			continue
		}

		m.mu.Lock()
		current := c.gen == m.gen
		onMessage := m.handlers.OnMessage
		m.mu.Unlock()

		if current && onMessage != nil {
			onMessage(frame)
		}
	}
}

func (m *Manager) writeLoop(c *connection) {
	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.outbox:
			ctx, cancel := context.WithTimeout(c.ctx, m.policy.WriteTimeout)
			err := c.transport.Write(ctx, data)
			cancel()
			if err != nil {
				m.logger.Warn().Err(err).Msg("failed to write frame")
			}
		}
	}
}

func (m *Manager) handleError(gen uint64, err error) {
	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		return
	}
	c := m.conn
	m.conn = nil
	m.status = domain.StatusError
	h := m.handlers
	m.mu.Unlock()

	m.logger.Error().Err(err).Msg("chat connection error")
	if c != nil {
		c.cancel()
	}
	emitStatus(h, domain.StatusError)
	if h.OnError != nil {
		h.OnError(err)
	}
}

func (m *Manager) handleClose(gen uint64, code int) {
	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		return
	}

	c := m.conn
	m.conn = nil
	m.connecting = false
	m.handle = handleClosed
	m.status = domain.StatusDisconnected
	lifetime := m.clock.Since(m.startedAt)

	retry := m.policy.shouldRetry(code, m.attempts, lifetime)
	var delay time.Duration
	attempt := m.attempts + 1
	if retry {
		delay = m.policy.Backoff(m.attempts)
		m.stopRetryLocked()
		m.retry = m.clock.AfterFunc(delay, func() { m.fireRetry(gen) })
	}
	h := m.handlers
	m.mu.Unlock()

	if c != nil {
		c.cancel()
	}

	m.logger.Info().
		Int("code", code).
		Dur("lifetime", lifetime).
		Bool("retry", retry).
		Msg("chat connection closed")

	emitStatus(h, domain.StatusDisconnected)
	if h.OnDisconnect != nil {
		h.OnDisconnect(code)
	}
	if retry && h.OnRetryScheduled != nil {
		h.OnRetryScheduled(attempt, delay)
	}
}

func (m *Manager) fireRetry(gen uint64) {
	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.retry = nil
	m.attempts++
	session := m.sessionID
	attempts := m.attempts
	m.mu.Unlock()

	m.logger.Info().Int("attempt", attempts).Msg("reconnecting")
	m.Connect(session)
}

// Disconnect closes the connection with the normal closure code, cancels any
// pending retry and resets the attempt counter. No automatic reconnection
// follows.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	c := m.resetLocked()
	prev := m.status
	m.status = domain.StatusDisconnected
	h := m.handlers
	m.mu.Unlock()

	m.shutdown(c)

	if prev != domain.StatusDisconnected {
		emitStatus(h, domain.StatusDisconnected)
	}
	if c != nil && h.OnDisconnect != nil {
		h.OnDisconnect(CloseNormal)
	}
}

// Unbind disconnects and forgets the bound session, so a later Reconnect
// has nothing to reopen until Connect is called again.
func (m *Manager) Unbind() {
	m.Disconnect()

	m.mu.Lock()
	m.sessionID = ""
	m.mu.Unlock()
}

// Reconnect disconnects, then connects again after the policy's reconnect
// delay.
func (m *Manager) Reconnect() {
	m.Disconnect()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.sessionID == "" {
		return
	}
	gen := m.gen
	session := m.sessionID
	m.retry = m.clock.AfterFunc(m.policy.ReconnectDelay, func() {
		m.mu.Lock()
		current := !m.closed && gen == m.gen
		if current {
			m.retry = nil
		}
		m.mu.Unlock()
		if current {
			m.Connect(session)
		}
	})
}

// Send transmits a user message frame. It never blocks on the network; the
// frame is queued for the connection's writer. When the connection is not
// open ErrNotConnected is returned, and if the previous connection ended
// with a close a fresh connect is started. The message is not queued for
// that connection.
func (m *Manager) Send(content string) error {
	data, err := json.Marshal(domain.NewUserFrame(content))
	if err != nil {
		return err
	}

	m.mu.Lock()
	c := m.conn
	if m.closed || c == nil || m.status != domain.StatusConnected {
		reconnect := !m.closed && m.handle == handleClosed && !m.connecting
		session := m.sessionID
		m.mu.Unlock()

		m.logger.Warn().Str("session_id", session).Bool("reconnect", reconnect).Msg("send rejected, connection not open")
		if reconnect {
			m.Connect(session)
		}
		return ErrNotConnected
	}

	select {
	case c.outbox <- data:
		m.mu.Unlock()
		return nil
	default:
		m.mu.Unlock()
		return ErrSendBufferFull
	}
}

// Close tears the manager down. Pending retries are cancelled and the live
// connection is closed with the normal closure code. Further calls are no-ops.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	c := m.resetLocked()
	m.closed = true
	m.status = domain.StatusDisconnected
	m.mu.Unlock()

	m.shutdown(c)
	m.cancel()
}

// resetLocked invalidates the current generation and returns the live
// connection, if any, for the caller to shut down after unlocking.
func (m *Manager) resetLocked() *connection {
	m.stopRetryLocked()
	m.gen++
	m.connecting = false
	m.attempts = 0
	m.handle = handleNone
	c := m.conn
	m.conn = nil
	return c
}

func (m *Manager) stopRetryLocked() {
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
}

func (m *Manager) shutdown(c *connection) {
	if c != nil {
		c.shutdown(CloseNormal, "Manual disconnect")
	}
}

func emitStatus(h Handlers, s domain.ConnectionStatus) {
	if h.OnStatus != nil {
		h.OnStatus(s)
	}
}
