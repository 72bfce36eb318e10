package session

import (
	"sync"
	"time"
)

// Store maps conversation keys to their single active session. Inserting
// for an occupied key expires and displaces the prior session
// (last-write-wins); reads apply the idle TTL so stale sessions are
// treated as expired on next access.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	locks    map[int64]*sync.Mutex
	ttl      time.Duration
}

// NewStore creates a store. ttl bounds how long a session may sit in
// StateMetadataReady before being treated as expired; zero disables
// idle expiry.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[int64]*Session),
		locks:    make(map[int64]*sync.Mutex),
		ttl:      ttl,
	}
}

// KeyLock returns the mutex serializing state transitions for one
// conversation key. Transfers for different keys proceed in parallel.
func (s *Store) KeyLock(key int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

// Put installs sess as the active session for its key and returns the
// displaced session, already expired (with any in-flight transfer
// cancelled), or nil when the key was free.
func (s *Store) Put(sess *Session) *Session {
	s.mu.Lock()
	prior := s.sessions[sess.Key]
	s.sessions[sess.Key] = sess
	s.mu.Unlock()
	if prior != nil {
		prior.Expire()
	}
	return prior
}

// Get returns the active session for key. A session idle beyond the TTL
// is expired, removed, and reported as absent. A transferring session is
// never idle: its lifetime is bounded by the transfer context, not the
// TTL.
func (s *Store) Get(key int64) (*Session, bool) {
	s.mu.Lock()
	sess, ok := s.sessions[key]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	if s.ttl > 0 && time.Since(sess.CreatedAt) > s.ttl && sess.State() != StateTransferring {
		s.Remove(key)
		sess.Expire()
		return nil, false
	}
	return sess, true
}

// Remove deletes the session for key without touching its state.
func (s *Store) Remove(key int64) {
	s.mu.Lock()
	delete(s.sessions, key)
	s.mu.Unlock()
}

// Close expires and removes the session for key, if any.
func (s *Store) Close(key int64) {
	s.mu.Lock()
	sess, ok := s.sessions[key]
	delete(s.sessions, key)
	s.mu.Unlock()
	if ok {
		sess.Expire()
	}
}

// Len reports the number of stored sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
