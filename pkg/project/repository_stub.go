package project

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

type RepositoryStub struct {
	mu       sync.RWMutex
	projects map[int]Project
	hours    map[int]decimal.Decimal
	// memberRoles is keyed by project id, then user id.
	memberRoles map[int]map[int][]string
	members     map[int]Member
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{
		projects:    map[int]Project{},
		hours:       map[int]decimal.Decimal{},
		memberRoles: map[int]map[int][]string{},
		members:     map[int]Member{},
	}
}

func (s *RepositoryStub) AddProject(p Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.Id] = p
}

// AddMember registers m in projectId holding the given roles.
func (s *RepositoryStub) AddMember(projectId int, m Member, roles ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.memberRoles[projectId] == nil {
		s.memberRoles[projectId] = map[int][]string{}
	}
	s.memberRoles[projectId][m.UserId] = append(s.memberRoles[projectId][m.UserId], roles...)
	s.members[m.UserId] = m
}

// SetTotalHours fixes the booked hours ListSummaries reports for projectId.
func (s *RepositoryStub) SetTotalHours(projectId int, hours decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hours[projectId] = hours
}

func (s *RepositoryStub) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects = map[int]Project{}
	s.hours = map[int]decimal.Decimal{}
	s.memberRoles = map[int]map[int][]string{}
	s.members = map[int]Member{}
}

func (s *RepositoryStub) ListActiveProjects(ctx context.Context) ([]Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(p Project) (Project, bool) { return p, p.Status == StatusActive }), nil
}

func (s *RepositoryStub) GetProject(ctx context.Context, id int) (Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return Project{}, ErrProjectNotFound
	}
	return p, nil
}

func (s *RepositoryStub) ListUserProjects(ctx context.Context, userId int) ([]Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(p Project) (Project, bool) {
		roles, ok := s.memberRoles[p.Id][userId]
		p.RoleName = joinSorted(roles)
		return p, ok && p.Status == StatusActive
	}), nil
}

func (s *RepositoryStub) ListOwnedProjects(ctx context.Context, userId int) ([]Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(p Project) (Project, bool) {
		var owned []string
		for _, role := range s.memberRoles[p.Id][userId] {
			if IsOwnerRole(role) {
				owned = append(owned, role)
			}
		}
		p.RoleName = joinSorted(owned)
		return p, len(owned) > 0 && p.Status == StatusActive
	}), nil
}

func (s *RepositoryStub) IsMember(ctx context.Context, userId int, projectId int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.memberRoles[projectId][userId]
	return ok, nil
}

func (s *RepositoryStub) GetProjectMembers(ctx context.Context, projectId int) ([]Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members := make([]Member, 0)
	for userId, roles := range s.memberRoles[projectId] {
		m := s.members[userId]
		m.Roles = append([]string(nil), roles...)
		sort.Strings(m.Roles)
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].Firstname+members[i].Lastname < members[j].Firstname+members[j].Lastname
	})
	return members, nil
}

func (s *RepositoryStub) CountByStatus(ctx context.Context) (map[int]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := map[int]int{}
	for _, p := range s.projects {
		counts[p.Status]++
	}
	return counts, nil
}

func (s *RepositoryStub) ListSummaries(ctx context.Context, status int) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	projects := s.filter(func(p Project) (Project, bool) { return p, p.Status == status })
	summaries := make([]Summary, 0, len(projects))
	for _, p := range projects {
		summaries = append(summaries, Summary{
			Project:     p,
			MemberCount: len(s.memberRoles[p.Id]),
			TotalHours:  s.hours[p.Id],
		})
	}
	return summaries, nil
}

func (s *RepositoryStub) filter(keep func(Project) (Project, bool)) []Project {
	projects := make([]Project, 0)
	for _, p := range s.projects {
		if p, ok := keep(p); ok {
			projects = append(projects, p)
		}
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].Name < projects[j].Name })
	return projects
}

func joinSorted(roles []string) string {
	sorted := append([]string(nil), roles...)
	sort.Strings(sorted)
	return strings.Join(sorted, ", ")
}
