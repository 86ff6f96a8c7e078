package bench

import (
	"context"
	"sort"
	"sync"
)

type weekKey struct {
	year, week int
}

type remarkKey struct {
	userId, week int
}

type RepositoryStub struct {
	mu      sync.RWMutex
	weeks   map[weekKey][]UserWeek
	remarks map[remarkKey]string
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{
		weeks:   map[weekKey][]UserWeek{},
		remarks: map[remarkKey]string{},
	}
}

func (s *RepositoryStub) PutWeek(year, week int, users ...UserWeek) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weeks[weekKey{year, week}] = users
}

func (s *RepositoryStub) Remark(userId, week int) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	remark, ok := s.remarks[remarkKey{userId, week}]
	return remark, ok
}

func (s *RepositoryStub) HasData(ctx context.Context, year, week int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.weeks[weekKey{year, week}]) > 0, nil
}

func (s *RepositoryStub) LatestWeek(ctx context.Context) (int, int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]weekKey, 0, len(s.weeks))
	for key, users := range s.weeks {
		if len(users) > 0 {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return 0, 0, false, nil
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year > keys[j].year
		}
		return keys[i].week > keys[j].week
	})
	return keys[0].year, keys[0].week, true, nil
}

func (s *RepositoryStub) GetUserWeeks(ctx context.Context, year, week int) ([]UserWeek, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]UserWeek, 0)
	for _, u := range s.weeks[weekKey{year, week}] {
		if remark, ok := s.remarks[remarkKey{u.UserId, week}]; ok {
			u.Remark = remark
		}
		users = append(users, u)
	}
	return users, nil
}

func (s *RepositoryStub) UpsertRemark(ctx context.Context, remark Remark) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remarks[remarkKey{remark.UserId, remark.Week}] = remark.Remark
	return nil
}
