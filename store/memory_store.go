package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/aniworld-dev/media-grab-bot/types"
)

// MemorySessionStore is the default session store: a mutex-guarded map from
// user ID to session. Nothing survives a process restart, which is fine for
// the conversation model; a button pressed after a restart lands on the
// "no pending link" path.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]*types.Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[int64]*types.Session),
	}
}

func (s *MemorySessionStore) GetOrCreate(userID, chatID int64) (*types.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[userID]; ok {
		return cloneSession(session), nil
	}

	now := time.Now()
	session := &types.Session{
		UserID:    userID,
		ChatID:    chatID,
		State:     types.StateUnverified,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions[userID] = session
	return cloneSession(session), nil
}

func (s *MemorySessionStore) Get(userID int64) (*types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[userID]
	if !ok {
		return nil, fmt.Errorf("session not found for user %d", userID)
	}
	return cloneSession(session), nil
}

func (s *MemorySessionStore) Update(session *types.Session) error {
	if session == nil {
		return fmt.Errorf("nil session")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	session.UpdatedAt = time.Now()
	s.sessions[session.UserID] = cloneSession(session)
	return nil
}

func (s *MemorySessionStore) TakePendingURL(userID int64) (string, string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[userID]
	if !ok || session.PendingURL == "" {
		return "", "", false, nil
	}

	url := session.PendingURL
	title := session.Title
	session.PendingURL = ""
	session.Title = ""
	session.State = types.StateAwaitingLink
	session.UpdatedAt = time.Now()
	return url, title, true, nil
}

func (s *MemorySessionStore) Delete(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
	return nil
}

func cloneSession(session *types.Session) *types.Session {
	c := *session
	return &c
}
