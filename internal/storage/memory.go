package storage

import (
	"sort"
	"sync"

	"community-backend/internal/chat"
)

type MemoryStorage struct {
	sessions map[string]*chat.Session
	mu       sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		sessions: make(map[string]*chat.Session),
	}
}

func (m *MemoryStorage) Create(session *chat.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[session.ID()]; exists {
		return ErrSessionExists
	}
	m.sessions[session.ID()] = session
	return nil
}

func (m *MemoryStorage) Get(sessionID string) (*chat.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (m *MemoryStorage) Delete(sessionID string) (*chat.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return nil, ErrSessionNotFound
	}
	delete(m.sessions, sessionID)
	return session, nil
}

// List 按会话 id 排序（UUIDv7，即创建顺序）
func (m *MemoryStorage) List() ([]*chat.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*chat.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].ID() < sessions[j].ID()
	})
	return sessions, nil
}
