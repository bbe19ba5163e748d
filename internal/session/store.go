package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store keeps sessions in memory. Sessions idle for longer than idleTTL are
// dropped the next time the store is accessed.
type Store struct {
	idleTTL time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewStore(idleTTL time.Duration, logger *slog.Logger) *Store {
	if idleTTL == 0 {
		idleTTL = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		idleTTL:  idleTTL,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session with id, creating a fresh one when id is empty,
// unknown or expired. The second result reports whether it was created.
func (s *Store) Get(id string) (*Session, bool) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(now)

	if sess, ok := s.sessions[id]; ok && id != "" {
		sess.touch(now)
		return sess, false
	}

	sess := newSession(uuid.NewString(), now)
	s.sessions[sess.ID] = sess
	return sess, true
}

// Lookup returns an existing session without creating one.
func (s *Store) Lookup(id string) (*Session, bool) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(now)
	sess, ok := s.sessions[id]
	if ok {
		sess.touch(now)
	}
	return sess, ok
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) sweepLocked(now time.Time) {
	for id, sess := range s.sessions {
		if sess.idleSince(now) > s.idleTTL {
			delete(s.sessions, id)
			s.logger.Debug("session expired", "session_id", id)
		}
	}
}
