package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/Rrens/flexy-chat/internal/chart"
	"github.com/Rrens/flexy-chat/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DegradedReplyText is the placeholder reply synthesized when no backend
// connection is available
const DegradedReplyText = "I'm a mock AI response. WebSocket connection is not available, but I can still help you! Try asking for charts or data analysis."

const (
	defaultDegradedReplyDelay = time.Second
	defaultHistoryLimit       = 200
	subscriberBuffer          = 64
	journalTimeout            = 5 * time.Second
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrNoSession    = errors.New("no active chat session")
)

// SessionCreator issues new chat sessions
type SessionCreator interface {
	CreateChatSession(ctx context.Context, workspaceID int64) (*domain.ChatSession, error)
}

// HistoryFetcher retrieves the messages of a session
type HistoryFetcher interface {
	GetChatMessages(ctx context.Context, sessionID string) ([]domain.Message, error)
}

// HistoryCache caches session history. Get returns nil on a miss.
type HistoryCache interface {
	Get(ctx context.Context, sessionID string) ([]domain.Message, error)
	Set(ctx context.Context, sessionID string, messages []domain.Message) error
}

// Connection is the live chat connection as seen by the orchestrator
type Connection interface {
	Connect(sessionID string)
	// Unbind disconnects and drops the session binding
	Unbind()
	Send(content string) error
	Status() domain.ConnectionStatus
}

// pendingReply is a scheduled placeholder reply
type pendingReply struct {
	timer clockwork.Timer
}

// ChatService bridges session lifecycle, history and the live connection
// into one ordered message log
type ChatService struct {
	sessions SessionCreator
	history  HistoryFetcher
	conn     Connection
	cache    HistoryCache
	journal  domain.MessageJournal
	clock    clockwork.Clock

	degradedDelay time.Duration
	historyLimit  int

	mu          sync.Mutex
	workspaceID int64
	sessionID   string
	loaded      string
	messages    []domain.Message
	lastID      int64
	pending     map[*pendingReply]struct{}
	subscribers map[chan domain.Message]struct{}
	closed      bool
}

// ChatOption configures a ChatService
type ChatOption func(*ChatService)

// WithHistoryCache sets the cache consulted before fetching history
func WithHistoryCache(c HistoryCache) ChatOption {
	return func(s *ChatService) {
		s.cache = c
	}
}

// WithJournal sets the local journal appended messages are written to. It
// also serves history when the backend is unreachable.
func WithJournal(j domain.MessageJournal) ChatOption {
	return func(s *ChatService) {
		s.journal = j
	}
}

// WithChatClock sets the clock used for timestamps and degraded replies
func WithChatClock(c clockwork.Clock) ChatOption {
	return func(s *ChatService) {
		s.clock = c
	}
}

// WithDegradedReplyDelay sets the delay before a placeholder reply
func WithDegradedReplyDelay(d time.Duration) ChatOption {
	return func(s *ChatService) {
		s.degradedDelay = d
	}
}

// WithHistoryLimit bounds the messages read from the journal fallback
func WithHistoryLimit(n int) ChatOption {
	return func(s *ChatService) {
		s.historyLimit = n
	}
}

// NewChatService creates a new chat service
func NewChatService(sessions SessionCreator, history HistoryFetcher, conn Connection, opts ...ChatOption) *ChatService {
	s := &ChatService{
		sessions:      sessions,
		history:       history,
		conn:          conn,
		clock:         clockwork.NewRealClock(),
		degradedDelay: defaultDegradedReplyDelay,
		historyLimit:  defaultHistoryLimit,
		pending:       make(map[*pendingReply]struct{}),
		subscribers:   make(map[chan domain.Message]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Activate binds the service to a workspace and session. Without a session
// id a new one is requested; if that fails a provisional id is used and the
// service runs in degraded mode. Returns the session id in use.
func (s *ChatService) Activate(ctx context.Context, workspaceID int64, sessionID string) string {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = s.createSession(ctx, workspaceID)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return sessionID
	}
	changed := s.sessionID != sessionID
	s.workspaceID = workspaceID
	s.sessionID = sessionID
	if changed {
		s.messages = nil
		s.stopPendingLocked()
	}
	needHistory := domain.IsRealSession(sessionID) && s.loaded != sessionID
	if needHistory {
		s.loaded = sessionID
	}
	s.mu.Unlock()

	if !domain.IsRealSession(sessionID) {
		log.Info().Str("session_id", sessionID).Msg("running chat in degraded mode")
		s.conn.Unbind()
		return sessionID
	}

	if needHistory {
		s.seed(sessionID, s.loadHistory(ctx, sessionID))
	}

	s.conn.Connect(sessionID)
	return sessionID
}

func (s *ChatService) createSession(ctx context.Context, workspaceID int64) string {
	session, err := s.sessions.CreateChatSession(ctx, workspaceID)
	if err == nil && session != nil && domain.IsRealSession(session.SessionID) {
		log.Info().Int64("workspace_id", workspaceID).Str("session_id", session.SessionID).Msg("chat session created")
		return session.SessionID
	}

	id := domain.NewProvisionalSessionID(workspaceID, s.clock.Now())
	log.Warn().Err(err).Int64("workspace_id", workspaceID).Str("session_id", id).Msg("failed to create chat session, using provisional id")
	return id
}

// loadHistory tries the cache, then the backend, then the local journal
func (s *ChatService) loadHistory(ctx context.Context, sessionID string) []domain.Message {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, sessionID)
		if err != nil {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to read history cache")
		} else if cached != nil {
			return cached
		}
	}

	messages, err := s.history.GetChatMessages(ctx, sessionID)
	if err == nil {
		if s.cache != nil {
			if err := s.cache.Set(ctx, sessionID, messages); err != nil {
				log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to cache history")
			}
		}
		return messages
	}
	log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to load chat history")

	if s.journal == nil {
		return nil
	}
	local, jerr := s.journal.ListBySession(ctx, sessionID, s.historyLimit)
	if jerr != nil {
		log.Warn().Err(jerr).Str("session_id", sessionID).Msg("failed to read local journal")
		return nil
	}
	return local
}

// seed prepends history to whatever the live connection has already
// delivered for the session
func (s *ChatService) seed(sessionID string, history []domain.Message) {
	if len(history) == 0 {
		return
	}

	seeded := make([]domain.Message, 0, len(history))
	for _, m := range history {
		m.SessionID = sessionID
		m.Display = chart.Decorate(m.Content)
		seeded = append(seeded, m)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessionID != sessionID {
		return
	}
	for _, m := range seeded {
		if m.ID > s.lastID {
			s.lastID = m.ID
		}
	}
	s.messages = append(seeded, s.messages...)
	log.Debug().Str("session_id", sessionID).Int("count", len(seeded)).Msg("history loaded")
}

// HandleFrame ingests one inbound frame from the connection
func (s *ChatService) HandleFrame(frame domain.Frame) {
	if frame.Type != domain.FrameAIResponse {
		log.Debug().Str("type", string(frame.Type)).Msg("ignoring frame")
		return
	}

	msg := domain.Message{
		Role:    domain.RoleAssistant,
		Content: frame.Content,
		Chart:   chart.Resolve(frame),
		Display: chart.Decorate(frame.Content),
	}
	if frame.Data != nil && frame.Data.InsightID != nil {
		msg.Metadata = &domain.MessageMetadata{InsightID: frame.Data.InsightID}
	}
	s.append(context.Background(), msg)
}

// Send appends a user message and delivers it. Without a live connection a
// placeholder reply is synthesized after a short delay instead.
func (s *ChatService) Send(ctx context.Context, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	sessionID := s.sessionID
	closed := s.closed
	s.mu.Unlock()
	if closed || sessionID == "" {
		return ErrNoSession
	}

	s.append(ctx, domain.Message{
		Role:    domain.RoleUser,
		Content: content,
		Display: domain.Display{Prose: content},
	})

	if s.conn.Status() == domain.StatusConnected {
		err := s.conn.Send(content)
		if err == nil {
			return nil
		}
		log.Warn().Err(err).Str("session_id", sessionID).Msg("send failed, replying locally")
	}

	s.scheduleDegradedReply(sessionID)
	return nil
}

func (s *ChatService) scheduleDegradedReply(sessionID string) {
	reply := &pendingReply{}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pending[reply] = struct{}{}
	s.mu.Unlock()

	timer := s.clock.AfterFunc(s.degradedDelay, func() {
		s.mu.Lock()
		_, live := s.pending[reply]
		delete(s.pending, reply)
		current := s.sessionID == sessionID
		s.mu.Unlock()

		if live && current {
			s.append(context.Background(), domain.Message{
				Role:    domain.RoleAssistant,
				Content: DegradedReplyText,
				Display: domain.Display{Prose: DegradedReplyText},
			})
		}
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, live := s.pending[reply]; live {
		reply.timer = timer
		return
	}
	timer.Stop()
}

// append assigns id, session and timestamp, then publishes the message
func (s *ChatService) append(ctx context.Context, msg domain.Message) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	now := s.clock.Now()
	msg.ID = s.nextIDLocked(now)
	msg.SessionID = s.sessionID
	msg.CreatedAt = now
	s.messages = append(s.messages, msg)
	for ch := range s.subscribers {
		select {
		case ch <- msg:
		default:
			log.Warn().Int64("message_id", msg.ID).Msg("subscriber is lagging, message dropped")
		}
	}
	s.mu.Unlock()

	if s.journal != nil && domain.IsRealSession(msg.SessionID) {
		jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
		defer cancel()
		if err := s.journal.Append(jctx, &msg); err != nil {
			log.Warn().Err(err).Int64("message_id", msg.ID).Msg("failed to journal message")
		}
	}
}

// nextIDLocked returns a timestamp based id that is strictly greater than
// every id handed out before
func (s *ChatService) nextIDLocked(now time.Time) int64 {
	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

// Messages returns a snapshot of the message log
func (s *ChatService) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// SessionID returns the active session id
func (s *ChatService) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// WorkspaceID returns the active workspace
func (s *ChatService) WorkspaceID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workspaceID
}

// Status returns the connection status
func (s *ChatService) Status() domain.ConnectionStatus {
	return s.conn.Status()
}

// Subscribe returns a channel receiving every message appended from now on
// and a function that cancels the subscription
func (s *ChatService) Subscribe() (<-chan domain.Message, func()) {
	ch := make(chan domain.Message, subscriberBuffer)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subscribers[ch]; ok {
				delete(s.subscribers, ch)
				close(ch)
			}
		})
	}
}

// Close stops pending degraded replies and ends all subscriptions
func (s *ChatService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.stopPendingLocked()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *ChatService) stopPendingLocked() {
	for reply := range s.pending {
		if reply.timer != nil {
			reply.timer.Stop()
		}
		delete(s.pending, reply)
	}
}
