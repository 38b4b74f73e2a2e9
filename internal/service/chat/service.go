package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sonrisasaludable/frontdesk/internal/model/chat"
)

var (
	ErrSessionIDRequired = errors.New("session id is required")
	ErrSessionNotFound   = errors.New("session not found")
)

// Transcript is the ordered, append-only turn list of one session.
type Transcript struct {
	mu       sync.RWMutex
	session  chat.Session
	messages []chat.Message
}

// Session returns a snapshot of the session metadata.
func (t *Transcript) Session() chat.Session {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.session
}

// Messages returns a copy of the turns in their original order.
func (t *Transcript) Messages() []chat.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	copied := make([]chat.Message, len(t.messages))
	copy(copied, t.messages)
	return copied
}

// Len returns the number of stored turns.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

func (t *Transcript) append(now time.Time, messages ...chat.Message) []chat.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	saved := make([]chat.Message, 0, len(messages))
	for _, message := range messages {
		message.SessionID = t.session.ID
		if message.ID == "" {
			message.ID = uuid.NewString()
		}
		if message.CreatedAt.IsZero() {
			message.CreatedAt = now
		}
		t.messages = append(t.messages, message)
		saved = append(saved, message)
	}
	t.session.LastActiveAt = now
	return saved
}

// Option configures a Service.
type Option func(*Service)

// WithExpiry installs an expiry policy. The default never expires sessions.
func WithExpiry(policy ExpiryPolicy) Option {
	return func(s *Service) {
		if policy != nil {
			s.policy = policy
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service keeps conversation state in process memory.
type Service struct {
	mu       sync.Mutex
	sessions map[string]*Transcript
	policy   ExpiryPolicy
	now      func() time.Time
}

// NewService bootstraps the in-memory session store.
func NewService(opts ...Option) *Service {
	s := &Service{
		sessions: make(map[string]*Transcript),
		policy:   NeverExpire{},
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// History returns the transcript for sessionID, creating an empty one on
// first reference. Later calls return the same instance until the expiry
// policy retires it.
func (s *Service) History(_ context.Context, sessionID string) *Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if t, ok := s.sessions[sessionID]; ok && !s.policy.Expired(t.Session(), now) {
		return t
	}

	t := &Transcript{
		session:  chat.Session{ID: sessionID, CreatedAt: now, LastActiveAt: now},
		messages: make([]chat.Message, 0, 16),
	}
	s.sessions[sessionID] = t
	return t
}

// CreateSession provisions a session with a generated identifier.
func (s *Service) CreateSession(ctx context.Context) (chat.Session, error) {
	return s.History(ctx, uuid.NewString()).Session(), nil
}

// SaveMessage appends a turn to the session history.
func (s *Service) SaveMessage(ctx context.Context, message chat.Message) (chat.Message, error) {
	if message.SessionID == "" {
		return chat.Message{}, ErrSessionIDRequired
	}
	return s.History(ctx, message.SessionID).append(s.now(), message)[0], nil
}

// SaveExchange appends several turns to one session as a single contiguous
// run; concurrent writers never interleave inside it.
func (s *Service) SaveExchange(ctx context.Context, sessionID string, messages ...chat.Message) ([]chat.Message, error) {
	if sessionID == "" {
		return nil, ErrSessionIDRequired
	}
	return s.History(ctx, sessionID).append(s.now(), messages...), nil
}

// GetSession retrieves a live session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	t, ok := s.lookup(sessionID)
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return t.Session(), nil
}

// LoadTranscript returns stored messages for a live session.
func (s *Service) LoadTranscript(_ context.Context, sessionID string) ([]chat.Message, error) {
	t, ok := s.lookup(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return t.Messages(), nil
}

// Sweep drops every session the expiry policy rejects and returns how many
// were removed.
func (s *Service) Sweep(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, t := range s.sessions {
		if s.policy.Expired(t.Session(), now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func (s *Service) lookup(sessionID string) (*Transcript, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.sessions[sessionID]
	if !ok || s.policy.Expired(t.Session(), s.now()) {
		return nil, false
	}
	return t, true
}
