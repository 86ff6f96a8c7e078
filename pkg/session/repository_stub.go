package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type RepositoryStub struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]Session
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{sessions: map[uuid.UUID]Session{}}
}

func (s *RepositoryStub) Create(ctx context.Context, session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Id] = session
	return nil
}

func (s *RepositoryStub) Get(ctx context.Context, id uuid.UUID) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return session, nil
}

func (s *RepositoryStub) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *RepositoryStub) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for id, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *RepositoryStub) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
