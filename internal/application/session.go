package app

import (
	"sync"

	"qc-vision/internal/domain/entity"
)

// SessionStore хранит сессии вошедших пользователей по ID чата
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]*entity.Session
}

// NewSessionStore создаёт пустое хранилище сессий
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[int64]*entity.Session)}
}

// Get возвращает копию сессии чата
func (s *SessionStore) Get(chatID int64) (*entity.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[chatID]
	if !ok {
		return nil, false
	}
	clone := *session
	return &clone, true
}

// Put сохраняет сессию, заменяя прежнюю
func (s *SessionStore) Put(session *entity.Session) {
	clone := *session

	s.mu.Lock()
	s.sessions[session.ChatID] = &clone
	s.mu.Unlock()
}

// Update применяет fn к сессии чата; false если сессии нет
func (s *SessionStore) Update(chatID int64, fn func(*entity.Session)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[chatID]
	if ok {
		fn(session)
	}
	return ok
}

// Delete удаляет сессию чата
func (s *SessionStore) Delete(chatID int64) {
	s.mu.Lock()
	delete(s.sessions, chatID)
	s.mu.Unlock()
}
