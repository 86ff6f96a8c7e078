package google

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type storedState struct {
	finalUrl  string
	createdAt time.Time
}

type StateRepositoryStub struct {
	mu     sync.RWMutex
	now    func() time.Time
	states map[uuid.UUID]storedState
}

func NewStateRepositoryStub(now func() time.Time) *StateRepositoryStub {
	return &StateRepositoryStub{now: now, states: map[uuid.UUID]storedState{}}
}

func (s *StateRepositoryStub) Save(ctx context.Context, nonce uuid.UUID, finalUrl string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[nonce] = storedState{finalUrl: finalUrl, createdAt: s.now()}
	return nil
}

func (s *StateRepositoryStub) Consume(ctx context.Context, nonce uuid.UUID, notBefore time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[nonce]
	if !ok || state.createdAt.Before(notBefore) {
		return "", ErrInvalidState
	}
	delete(s.states, nonce)
	return state.finalUrl, nil
}
