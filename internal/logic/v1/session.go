package v1

import (
	"context"
	"sync"
	"time"

	"github.com/duynhne/user-web/internal/core/domain"
	"github.com/google/uuid"
)

// Session is one browser's view state: its list view, its detail view and
// a one-shot flash message.
type Session struct {
	ID     string
	List   *ListView
	Detail *DetailView

	mu       sync.Mutex
	flash    string
	lastSeen time.Time
}

// SetFlash stores a message shown on the next rendered page.
func (s *Session) SetFlash(msg string) {
	s.mu.Lock()
	s.flash = msg
	s.mu.Unlock()
}

// PopFlash returns and clears the pending flash message.
func (s *Session) PopFlash() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := s.flash
	s.flash = ""
	return msg
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// SessionStore keeps sessions in memory and expires them after ttl of
// inactivity. View state is never persisted. At most limit sessions are
// held; creating one beyond that evicts the least recently used.
type SessionStore struct {
	users     domain.UserRepository
	validator *Validator
	ttl       time.Duration
	limit     int
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionStore creates a store whose sessions read and write through users.
// A limit of zero or less leaves the store unbounded.
func NewSessionStore(users domain.UserRepository, validator *Validator, ttl time.Duration, limit int) *SessionStore {
	return &SessionStore{
		users:     users,
		validator: validator,
		ttl:       ttl,
		limit:     limit,
		now:       time.Now,
		sessions:  make(map[string]*Session),
	}
}

// Get returns a live session and refreshes its idle timer.
func (s *SessionStore) Get(id string) (*Session, bool) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if sess.idleSince(now) > s.ttl {
		delete(s.sessions, id)
		return nil, false
	}
	sess.touch(now)
	return sess, true
}

// Create starts a fresh session with empty views.
func (s *SessionStore) Create() *Session {
	sess := &Session{
		ID:     uuid.NewString(),
		List:   NewListView(s.users, s.validator),
		Detail: NewDetailView(s.users, s.validator),
	}
	now := s.now()
	sess.touch(now)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.limit > 0 && len(s.sessions) >= s.limit {
		s.evictLocked(now)
	}
	s.sessions[sess.ID] = sess
	return sess
}

// evictLocked makes room for one session: expired sessions go first, and
// if none expired the least recently used one is dropped.
func (s *SessionStore) evictLocked(now time.Time) {
	var oldestID string
	var oldestIdle time.Duration
	for id, sess := range s.sessions {
		idle := sess.idleSince(now)
		if idle > s.ttl {
			delete(s.sessions, id)
			continue
		}
		if oldestID == "" || idle > oldestIdle {
			oldestID, oldestIdle = id, idle
		}
	}
	if len(s.sessions) >= s.limit && oldestID != "" {
		delete(s.sessions, oldestID)
	}
}

// Len reports the number of stored sessions, expired ones included until swept.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes expired sessions and returns how many were dropped.
func (s *SessionStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := 0
	for id, sess := range s.sessions {
		if sess.idleSince(now) > s.ttl {
			delete(s.sessions, id)
			dropped++
		}
	}
	return dropped
}

// Run sweeps expired sessions every interval until ctx is done.
func (s *SessionStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
