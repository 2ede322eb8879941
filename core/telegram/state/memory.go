package state

import (
	"sync"
	"time"
)

type userLock struct {
	mu   sync.Mutex
	refs int
}

// MemoryStore is an in-memory Store. Sessions do not survive restarts.
type MemoryStore[S any] struct {
	mu       sync.Mutex
	sessions map[int64]Session[S]
	locks    map[int64]*userLock
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore[S any]() *MemoryStore[S] {
	return &MemoryStore[S]{
		sessions: make(map[int64]Session[S]),
		locks:    make(map[int64]*userLock),
	}
}

// Lock acquires the exclusive lock of userID and returns its release func.
// Lock entries are reference counted so idle users leave nothing behind.
func (m *MemoryStore[S]) Lock(userID int64) func() {
	m.mu.Lock()
	l, ok := m.locks[userID]
	if !ok {
		l = &userLock{}
		m.locks[userID] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()
			m.mu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(m.locks, userID)
			}
			m.mu.Unlock()
		})
	}
}

// Get returns the session for a user if it exists.
func (m *MemoryStore[S]) Get(userID int64) (Session[S], bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[userID]
	return sess, ok
}

// Put replaces the session for a user.
func (m *MemoryStore[S]) Put(userID int64, sess Session[S]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = sess
}

// Clear removes the entire session for a user.
func (m *MemoryStore[S]) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

// Len returns the number of stored sessions.
func (m *MemoryStore[S]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops sessions not updated since cutoff and returns how many were
// removed. Users currently holding or waiting for their lock are skipped.
func (m *MemoryStore[S]) Sweep(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, sess := range m.sessions {
		if _, busy := m.locks[id]; busy {
			continue
		}
		if sess.Updated.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}
