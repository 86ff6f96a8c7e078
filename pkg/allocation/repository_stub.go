package allocation

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"
)

type entryKey struct {
	userId, projectId, week, year int
}

type RepositoryStub struct {
	mu           sync.RWMutex
	entries      map[entryKey]HourEntry
	projectNames map[int]string
	// FailFor makes Upsert fail for the listed user ids.
	FailFor     map[int]bool
	UpsertCalls int
	nextId      int
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{
		entries:      map[entryKey]HourEntry{},
		projectNames: map[int]string{},
		FailFor:      map[int]bool{},
	}
}

func (s *RepositoryStub) SetProjectName(projectId int, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projectNames[projectId] = name
}

func (s *RepositoryStub) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = map[entryKey]HourEntry{}
	s.projectNames = map[int]string{}
	s.FailFor = map[int]bool{}
	s.UpsertCalls = 0
	s.nextId = 0
}

func (s *RepositoryStub) Upsert(ctx context.Context, entry HourEntry) (HourEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UpsertCalls++
	if s.FailFor[entry.UserId] {
		return HourEntry{}, errors.New("upsert failed")
	}
	key := entryKey{entry.UserId, entry.ProjectId, entry.Week, entry.Year}
	if existing, ok := s.entries[key]; ok {
		entry.Id = existing.Id
	} else {
		s.nextId++
		entry.Id = s.nextId
	}
	entry.UpdatedAt = time.Now()
	entry.ProjectName = ""
	s.entries[key] = entry
	return entry, nil
}

func (s *RepositoryStub) GetEntry(ctx context.Context, id int) (HourEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for key, entry := range s.entries {
		if entry.Id == id {
			entry.ProjectName = s.projectNames[key.projectId]
			return entry, nil
		}
	}
	return HourEntry{}, ErrEntryNotFound
}

func (s *RepositoryStub) GetUserWeekAllocations(ctx context.Context, userId, week, year int) ([]ProjectHours, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	allocations := make([]ProjectHours, 0)
	for key, entry := range s.entries {
		if key.userId == userId && key.week == week && key.year == year {
			allocations = append(allocations, ProjectHours{
				ProjectId:   key.projectId,
				ProjectName: s.projectNames[key.projectId],
				Hours:       entry.Hours,
			})
		}
	}
	sort.Slice(allocations, func(i, j int) bool {
		ti, tj := allocations[i].Total(), allocations[j].Total()
		if !ti.Equal(tj) {
			return ti.GreaterThan(tj)
		}
		return allocations[i].ProjectName < allocations[j].ProjectName
	})
	return allocations, nil
}

func (s *RepositoryStub) GetProjectEntries(ctx context.Context, projectId, year int, weeks []int) ([]HourEntry, error) {
	return s.collect(func(key entryKey) bool {
		return key.projectId == projectId && key.year == year && (len(weeks) == 0 || slices.Contains(weeks, key.week))
	}), nil
}

func (s *RepositoryStub) GetUserEntries(ctx context.Context, userId, year int, weeks []int) ([]HourEntry, error) {
	return s.collect(func(key entryKey) bool {
		return key.userId == userId && key.year == year && (len(weeks) == 0 || slices.Contains(weeks, key.week))
	}), nil
}

func (s *RepositoryStub) collect(match func(entryKey) bool) []HourEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]HourEntry, 0)
	for key, entry := range s.entries {
		if match(key) {
			entry.ProjectName = s.projectNames[key.projectId]
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Week != entries[j].Week {
			return entries[i].Week < entries[j].Week
		}
		if entries[i].ProjectName != entries[j].ProjectName {
			return entries[i].ProjectName < entries[j].ProjectName
		}
		return entries[i].UserId < entries[j].UserId
	})
	return entries
}
