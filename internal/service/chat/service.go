package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/gemini-chat/internal/llm"
	"github.com/zhouzirui/gemini-chat/internal/model/chat"
	"github.com/zhouzirui/gemini-chat/internal/service/ai"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidSpeaker  = errors.New("invalid speaker")
)

const gcInterval = 5 * time.Minute

// Service holds the per-browser-session state: transcript, pending input and
// the lazily created chat handle. Sessions never share state.
type Service struct {
	client      llm.Client
	idleTimeout time.Duration
	now         func() time.Time

	mu       sync.RWMutex
	sessions map[string]*sessionState
}

type sessionState struct {
	// turnMu serializes submissions so a session never runs two turns at once.
	turnMu sync.Mutex

	handleMu sync.Mutex
	handle   llm.Handle

	mu         sync.Mutex
	session    chat.Session
	transcript []chat.Turn
	pending    string
}

// Option customizes a Service.
type Option func(*Service)

// WithIdleTimeout sets how long an untouched session survives garbage collection.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.idleTimeout = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates an empty store whose handles come from client.
func NewService(client llm.Client, opts ...Option) *Service {
	s := &Service{
		client:      client,
		idleTimeout: 30 * time.Minute,
		now:         time.Now,
		sessions:    make(map[string]*sessionState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open returns the session identified by id, creating a fresh one when id is
// empty or unknown. The bool reports whether a session was created.
func (s *Service) Open(_ context.Context, id string) (chat.Session, bool) {
	now := s.now().UTC()

	if id != "" {
		s.mu.RLock()
		st, ok := s.sessions[id]
		s.mu.RUnlock()
		if ok {
			st.mu.Lock()
			st.session.LastActiveAt = now
			session := st.session
			st.mu.Unlock()
			return session, false
		}
	}

	st := &sessionState{
		session: chat.Session{
			ID:           uuid.NewString(),
			CreatedAt:    now,
			LastActiveAt: now,
		},
		transcript: make([]chat.Turn, 0, 16),
	}

	s.mu.Lock()
	s.sessions[st.session.ID] = st
	s.mu.Unlock()

	log.Debug().Str("session", st.session.ID).Msg("session opened")
	return st.session, true
}

// End disposes a session and everything it holds.
func (s *Service) End(_ context.Context, id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *Service) lookup(id string) (*sessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return st, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, id string) (chat.Session, error) {
	st, err := s.lookup(id)
	if err != nil {
		return chat.Session{}, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.session, nil
}

// LoadTranscript returns a copy of the session's turns in display order.
func (s *Service) LoadTranscript(_ context.Context, id string) ([]chat.Turn, error) {
	st, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	copied := make([]chat.Turn, len(st.transcript))
	copy(copied, st.transcript)
	return copied, nil
}

// AppendTurn adds one entry at the end of the transcript.
func (s *Service) AppendTurn(_ context.Context, id string, speaker chat.Speaker, utterance string) error {
	if !speaker.Valid() {
		return errors.Wrapf(ErrInvalidSpeaker, "%q", speaker)
	}

	st, err := s.lookup(id)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	st.mu.Lock()
	defer st.mu.Unlock()
	st.transcript = append(st.transcript, chat.Turn{
		Speaker:   speaker,
		Utterance: utterance,
		CreatedAt: now,
	})
	st.session.LastActiveAt = now
	return nil
}

// Pending returns the current contents of the session's input control.
func (s *Service) Pending(_ context.Context, id string) (string, error) {
	st, err := s.lookup(id)
	if err != nil {
		return "", err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.pending, nil
}

// SetPending replaces the contents of the session's input control.
func (s *Service) SetPending(_ context.Context, id, text string) error {
	st, err := s.lookup(id)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.pending = text
	return nil
}

// GetOrCreateHandle returns the session's chat handle, starting one on first
// use. Failed starts are not memoized.
func (s *Service) GetOrCreateHandle(ctx context.Context, id string) (llm.Handle, error) {
	st, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	st.handleMu.Lock()
	defer st.handleMu.Unlock()
	if st.handle != nil {
		return st.handle, nil
	}

	handle, err := s.client.StartSession(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "start chat session")
	}
	st.handle = handle
	log.Debug().Str("session", id).Msg("chat handle created")
	return handle, nil
}

// Outcome describes a finished submission.
type Outcome struct {
	Submitted bool
	Reply     string
}

// Submit runs one turn: it records the user's text, forwards it to the
// session's chat handle and records the reply. Blank input is ignored.
//
// When the remote call fails the user turn stays in the transcript without a
// reply and the pending input keeps the failed text.
func (s *Service) Submit(ctx context.Context, id, text string) (Outcome, error) {
	return s.SubmitStream(ctx, id, text, nil)
}

// SubmitStream is Submit with every reply fragment passed to onChunk as it arrives.
func (s *Service) SubmitStream(ctx context.Context, id, text string, onChunk func(string) error) (Outcome, error) {
	utterance := strings.TrimSpace(text)
	if utterance == "" {
		return Outcome{}, nil
	}

	st, err := s.lookup(id)
	if err != nil {
		return Outcome{}, err
	}

	st.turnMu.Lock()
	defer st.turnMu.Unlock()

	if err := s.SetPending(ctx, id, text); err != nil {
		return Outcome{}, err
	}
	if err := s.AppendTurn(ctx, id, chat.User, utterance); err != nil {
		return Outcome{}, err
	}

	handle, err := s.GetOrCreateHandle(ctx, id)
	if err != nil {
		return Outcome{}, err
	}

	started := s.now()
	reply, err := ai.Relay(ctx, utterance, handle, onChunk)
	if err != nil {
		log.Error().Err(err).Str("session", id).Msg("chat turn failed")
		return Outcome{}, errors.Wrap(err, "chat turn")
	}

	if err := s.AppendTurn(ctx, id, chat.Bot, reply); err != nil {
		return Outcome{}, err
	}
	if err := s.SetPending(ctx, id, ""); err != nil {
		return Outcome{}, err
	}

	log.Info().
		Str("session", id).
		Int("reply_len", len(reply)).
		Dur("elapsed", s.now().Sub(started)).
		Msg("chat turn completed")
	return Outcome{Submitted: true, Reply: reply}, nil
}

// StartGC evicts idle sessions until ctx is cancelled.
func (s *Service) StartGC(ctx context.Context) {
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.gcSessions()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) gcSessions() int {
	cutoff := s.now().UTC().Add(-s.idleTimeout)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, st := range s.sessions {
		st.mu.Lock()
		inactive := st.session.LastActiveAt.Before(cutoff)
		st.mu.Unlock()
		if !inactive {
			continue
		}
		// Skip sessions with a turn in flight.
		if !st.turnMu.TryLock() {
			continue
		}
		delete(s.sessions, id)
		st.turnMu.Unlock()
		removed++
	}

	if removed > 0 {
		log.Info().Int("removed", removed).Int("remaining", len(s.sessions)).Msg("evicted idle sessions")
	}
	return removed
}
