package store

import (
	"sort"
	"sync"
	"time"

	"github.com/graphweave/graphweave/pkg/logger"
)

const DefaultCleanupInterval = time.Minute

// Store keys sessions by caller-supplied identifier. Sessions are
// created on first use, evicted in the background once expired, and
// closed on delete.
type Store struct {
	cleanupInterval time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session

	done      chan struct{}
	closeOnce sync.Once
}

// StoreParams configures a Store. A zero CleanupInterval selects the
// default; a negative one disables the background sweep.
type StoreParams struct {
	CleanupInterval time.Duration
}

func NewStore(params StoreParams) *Store {
	interval := params.CleanupInterval
	if interval == 0 {
		interval = DefaultCleanupInterval
	}

	s := &Store{
		cleanupInterval: interval,
		sessions:        make(map[string]*Session),
		done:            make(chan struct{}),
	}
	if interval > 0 {
		go s.cleanupLoop()
	}
	return s
}

// GetOrCreate returns the session for id, creating it when absent. The
// configuration is validated before anything is allocated; an existing
// session keeps its original configuration. The second return reports
// whether the session was created by this call.
func (s *Store) GetOrCreate(id string, cfg SessionConfig) (*Session, bool, error) {
	if id == "" {
		return nil, false, &ConfigError{Field: "session_id", Reason: "must not be empty"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[id]; ok {
		if !existing.IsExpired() {
			existing.Touch()
			return existing, false, nil
		}
		// Drain the stale session before replacing it, like Delete does.
		_ = existing.Close()
	}

	session := newSession(id, cfg.withDefaults())
	s.sessions[id] = session
	return session, true, nil
}

// Get returns the session for id, or ErrSessionNotFound when it is
// unknown or expired.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok || session.IsExpired() {
		return nil, ErrSessionNotFound
	}
	session.Touch()
	return session, nil
}

// Delete closes and removes the session for id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	session, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	return session.Close()
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// IDs returns all live session ids sorted ascending.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Close stops the cleanup loop and closes every session.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})

	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, session := range sessions {
		_ = session.Close()
	}
}

func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *Store) evictExpired() {
	s.mu.Lock()
	expired := make([]*Session, 0)
	for id, session := range s.sessions {
		if session.IsExpired() {
			expired = append(expired, session)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, session := range expired {
		logger.Debug("evicting expired session", "session", session.ID())
		_ = session.Close()
	}
}
