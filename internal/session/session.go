package session

import (
	"errors"
	"sync"
	"time"

	"github.com/Brownie44l1/imgclass-api/internal/classify"
)

var ErrNoImage = errors.New("no image loaded")

type State string

const (
	StateUnloaded    State = "unloaded"
	StateImageLoaded State = "image_loaded"
)

// Session remembers the loaded image between the separate "load" and
// "classify" actions of one user.
type Session struct {
	ID string

	mu         sync.Mutex
	image      *classify.Loaded
	lastResult *classify.Result
	lastAccess time.Time
}

func newSession(id string, now time.Time) *Session {
	return &Session{ID: id, lastAccess: now}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.image == nil {
		return StateUnloaded
	}
	return StateImageLoaded
}

// Load replaces any previously loaded image and forgets its last result.
func (s *Session) Load(img *classify.Loaded) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.image = img
	s.lastResult = nil
}

// Image returns the loaded image, or ErrNoImage in the Unloaded state.
func (s *Session) Image() (*classify.Loaded, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.image == nil {
		return nil, ErrNoImage
	}
	return s.image, nil
}

// Classify runs fn on the loaded image and records its result. The image
// stays loaded so classification can be repeated with other settings.
func (s *Session) Classify(fn func(*classify.Loaded) (*classify.Result, error)) (*classify.Result, error) {
	img, err := s.Image()
	if err != nil {
		return nil, err
	}

	result, err := fn(img)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.image == img {
		s.lastResult = result
	}
	s.mu.Unlock()
	return result, nil
}

func (s *Session) LastResult() *classify.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResult
}

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.image = nil
	s.lastResult = nil
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastAccess = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastAccess)
}
