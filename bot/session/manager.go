package session

import "sync"

type entry struct {
	mu   sync.Mutex
	sess *Session
}

// Manager owns all user sessions. Mutation happens inside Update under
// a per-user lock, so two events from the same user never interleave
// their read-modify-write while distinct users never contend.
type Manager struct {
	mu      sync.Mutex
	entries map[int64]*entry
}

// NewManager returns an empty session manager.
func NewManager() *Manager {
	return &Manager{entries: make(map[int64]*entry)}
}

func (m *Manager) entryFor(userID int64) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[userID]
	if !ok {
		e = &entry{}
		m.entries[userID] = e
	}
	return e
}

// Update runs fn against the user's session under the per-user lock.
// A missing session appears to fn as idle; a session left idle by fn
// is dropped afterwards.
func (m *Manager) Update(userID int64, fn func(s *Session) error) error {
	e := m.entryFor(userID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess == nil {
		e.sess = &Session{}
	}
	err := fn(e.sess)
	if e.sess.State == StateIdle {
		e.sess = nil
	}
	return err
}

// Clear drops the user's session if any.
func (m *Manager) Clear(userID int64) {
	e := m.entryFor(userID)
	e.mu.Lock()
	e.sess = nil
	e.mu.Unlock()
}

// Peek returns a copy of the user's session state without mutating it.
func (m *Manager) Peek(userID int64) (Session, bool) {
	e := m.entryFor(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess == nil {
		return Session{}, false
	}
	return *e.sess, true
}

// InProgress reports whether the user has an active session.
func (m *Manager) InProgress(userID int64) bool {
	_, ok := m.Peek(userID)
	return ok
}
