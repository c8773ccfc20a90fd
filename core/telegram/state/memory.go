package state

import (
	"context"
	"errors"
	"sync"
)

// MemoryStore keeps sessions in process memory. Updates for one chat are
// serialized by a per-chat mutex; different chats proceed in parallel.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]Session
	locks    sync.Map // int64 -> *sync.Mutex
}

// NewMemoryStore constructs an in-memory Store for tests and development.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]Session)}
}

func (m *MemoryStore) lockChat(chatID int64) func() {
	v, _ := m.locks.LoadOrStore(chatID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Get returns the session for a chat if it exists, otherwise an idle session.
func (m *MemoryStore) Get(_ context.Context, chatID int64) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sess, ok := m.sessions[chatID]; ok {
		return sess.Clone(), nil
	}
	return Idle(), nil
}

// Update applies fn to a copy of the session and stores the result.
func (m *MemoryStore) Update(ctx context.Context, chatID int64, fn func(*Session) error) error {
	unlock := m.lockChat(chatID)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	sess, _ := m.Get(ctx, chatID)
	if err := fn(&sess); err != nil {
		if errors.Is(err, ErrUnchanged) {
			return nil
		}
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if sess.Empty() {
		delete(m.sessions, chatID)
		return nil
	}
	m.sessions[chatID] = sess.Clone()
	return nil
}

// Clear removes the entire session for a chat.
func (m *MemoryStore) Clear(_ context.Context, chatID int64) error {
	unlock := m.lockChat(chatID)
	defer unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
	return nil
}

// Len returns the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
