package dashboard

import (
	"context"
	"errors"
	"sort"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/tppms/tppms/internal/authz"
	"github.com/tppms/tppms/internal/utils"
	"github.com/tppms/tppms/pkg/allocation"
	"github.com/tppms/tppms/pkg/project"
	"github.com/tppms/tppms/pkg/user"
	"github.com/tppms/tppms/pkg/week_calendar"
)

var ErrAccessDenied = errors.New("admin access required")

type Authorizer interface {
	Allowed(ctx context.Context, object, action string) bool
}

type UserLister interface {
	GetAllUsers(ctx context.Context) ([]user.User, error)
}

type ProjectStore interface {
	CountByStatus(ctx context.Context) (map[int]int, error)
	ListSummaries(ctx context.Context, status int) ([]project.Summary, error)
}

type OwnedProjects interface {
	MyOwnedProjects(ctx context.Context) ([]project.Project, error)
}

type WeeklyAllocations interface {
	ProjectWeeklyAllocations(ctx context.Context, projectId, year int, weeks []int) (allocation.ProjectWeeklyView, error)
}

type Service interface {
	AdminSummary(ctx context.Context) (AdminSummary, error)
	UsersByStatus(ctx context.Context, status int, search string, page Page) (Listing[user.User], error)
	ProjectsByStatus(ctx context.Context, status int, search string, page Page) (Listing[project.Summary], error)
	// OwnerDashboard totals every project the caller owns over the queried period.
	OwnerDashboard(ctx context.Context, query OwnerQuery) (OwnerDashboard, error)
}

type ServiceImpl struct {
	users       UserLister
	projects    ProjectStore
	owned       OwnedProjects
	allocations WeeklyAllocations
	authorizer  Authorizer
	clock       utils.Clock
	limit       decimal.Decimal
}

func NewService(
	users UserLister,
	projects ProjectStore,
	owned OwnedProjects,
	allocations WeeklyAllocations,
	authorizer Authorizer,
	clock utils.Clock,
	weeklyLimit int,
) *ServiceImpl {
	return &ServiceImpl{
		users:       users,
		projects:    projects,
		owned:       owned,
		allocations: allocations,
		authorizer:  authorizer,
		clock:       clock,
		limit:       decimal.NewFromInt(int64(weeklyLimit)),
	}
}

func (s *ServiceImpl) AdminSummary(ctx context.Context) (AdminSummary, error) {
	if !s.authorizer.Allowed(ctx, authz.ObjDashboard, authz.ActRead) {
		return AdminSummary{}, ErrAccessDenied
	}
	users, err := s.users.GetAllUsers(ctx)
	if err != nil {
		return AdminSummary{}, err
	}
	var summary AdminSummary
	for _, u := range users {
		switch u.Status {
		case user.StatusActive:
			summary.Users.Active++
		case user.StatusNew:
			summary.Users.New++
		case user.StatusInactive:
			summary.Users.Inactive++
		}
	}
	counts, err := s.projects.CountByStatus(ctx)
	if err != nil {
		return AdminSummary{}, err
	}
	summary.Projects = ProjectCounts{
		Active:    counts[project.StatusActive],
		OnHold:    counts[project.StatusOnHold],
		Completed: counts[project.StatusCompleted],
	}
	log.Debugf("admin summary: %+v", summary)
	return summary, nil
}

func (s *ServiceImpl) UsersByStatus(ctx context.Context, status int, search string, page Page) (Listing[user.User], error) {
	if !s.authorizer.Allowed(ctx, authz.ObjDashboard, authz.ActRead) {
		return Listing[user.User]{}, ErrAccessDenied
	}
	if err := page.Validate(); err != nil {
		return Listing[user.User]{}, err
	}
	users, err := s.users.GetAllUsers(ctx)
	if err != nil {
		return Listing[user.User]{}, err
	}
	matching := make([]user.User, 0, len(users))
	for _, u := range users {
		if u.Status == status && containsFold(search, u.Firstname, u.Lastname, u.FullName(), u.Login) {
			matching = append(matching, u)
		}
	}
	sort.SliceStable(matching, func(i, j int) bool {
		if matching[i].Firstname != matching[j].Firstname {
			return matching[i].Firstname < matching[j].Firstname
		}
		return matching[i].Lastname < matching[j].Lastname
	})
	return paginate(matching, page), nil
}

func (s *ServiceImpl) ProjectsByStatus(ctx context.Context, status int, search string, page Page) (Listing[project.Summary], error) {
	if !s.authorizer.Allowed(ctx, authz.ObjDashboard, authz.ActRead) {
		return Listing[project.Summary]{}, ErrAccessDenied
	}
	if err := page.Validate(); err != nil {
		return Listing[project.Summary]{}, err
	}
	summaries, err := s.projects.ListSummaries(ctx, status)
	if err != nil {
		return Listing[project.Summary]{}, err
	}
	matching := make([]project.Summary, 0, len(summaries))
	for _, summary := range summaries {
		if containsFold(search, summary.Name, summary.Description) {
			matching = append(matching, summary)
		}
	}
	return paginate(matching, page), nil
}

func (s *ServiceImpl) OwnerDashboard(ctx context.Context, query OwnerQuery) (OwnerDashboard, error) {
	if err := query.Validate(); err != nil {
		return OwnerDashboard{}, err
	}
	weeks, err := s.periodWeeks(query)
	if err != nil {
		return OwnerDashboard{}, err
	}
	owned, err := s.owned.MyOwnedProjects(ctx)
	if err != nil {
		return OwnerDashboard{}, err
	}

	rows := make([]OwnerProject, 0, len(owned))
	for _, p := range owned {
		if !query.keeps(p) {
			continue
		}
		view, err := s.allocations.ProjectWeeklyAllocations(ctx, p.Id, query.Year, weeks)
		if err != nil {
			return OwnerDashboard{}, err
		}
		capacity := s.limit.Mul(decimal.NewFromInt(int64(len(weeks) * len(view.Members))))
		allocated, notAllocated := Utilisation(view.Totals.Total, capacity)
		view.Project.RoleName = p.RoleName
		rows = append(rows, OwnerProject{
			Project:                view.Project,
			MemberCount:            len(view.Members),
			Totals:                 view.Totals,
			Capacity:               capacity,
			AllocatedPercentage:    allocated,
			NotAllocatedPercentage: notAllocated,
		})
	}
	sortOwnerProjects(rows, query.SortBy, query.Descending)
	log.Debugf("owner dashboard: %d of %d owned projects over weeks %v of %d", len(rows), len(owned), weeks, query.Year)

	return OwnerDashboard{
		Year:     query.Year,
		Weeks:    weeks,
		Projects: paginate(rows, query.Page),
		Query:    query,
	}, nil
}

func (s *ServiceImpl) periodWeeks(query OwnerQuery) ([]int, error) {
	switch {
	case len(query.Weeks) > 0:
		for _, week := range query.Weeks {
			if err := week_calendar.ValidateWeek(week); err != nil {
				return nil, err
			}
		}
		return query.Weeks, nil
	case query.Month != 0:
		return week_calendar.WeeksOverlappingMonth(query.Year, query.Month)
	default:
		current := week_calendar.CurrentWeekNumber(s.clock)
		return allocation.DisplayWeeks(current, current), nil
	}
}

// sortOwnerProjects orders rows by key, breaking ties by project name.
func sortOwnerProjects(rows []OwnerProject, key string, descending bool) {
	compare := func(a, b OwnerProject) int {
		switch key {
		case SortByAllocated:
			return a.Totals.Total.Cmp(b.Totals.Total)
		case SortByNotAllocated:
			return a.NotAllocatedPercentage.Cmp(b.NotAllocatedPercentage)
		case SortByStatus:
			return a.Project.Status - b.Project.Status
		default:
			return 0
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		c := compare(rows[i], rows[j])
		if c == 0 {
			if descending {
				return rows[i].Project.Name > rows[j].Project.Name
			}
			return rows[i].Project.Name < rows[j].Project.Name
		}
		if descending {
			return c > 0
		}
		return c < 0
	})
}
