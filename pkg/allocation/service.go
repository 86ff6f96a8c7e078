package allocation

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/tppms/tppms/internal/authz"
	"github.com/tppms/tppms/internal/event_bus"
	"github.com/tppms/tppms/pkg/project"
	"github.com/tppms/tppms/pkg/user"
	"github.com/tppms/tppms/pkg/week_calendar"
)

var (
	ErrEditNotAllowed = errors.New("not allowed to edit allocations")
	ErrReadNotAllowed = errors.New("not allowed to read allocations")
)

type ProjectReader interface {
	GetProject(ctx context.Context, projectId int) (project.Project, error)
	Members(ctx context.Context, projectId int) (project.Project, []project.Member, error)
	CheckAccess(ctx context.Context, projectId int) error
}

// ProjectWeeklyView is the role-filtered allocation grid of a project.
type ProjectWeeklyView struct {
	Project    project.Project
	Year       int
	Weeks      []int
	Members    []TeamMember
	WeekTotals map[int]Totals
	Totals     Totals
}

type Insights struct {
	Project     project.Project
	Year        int
	Weeks       []int
	MemberCount int
	Totals      Totals
}

type Service interface {
	ProjectWeeklyAllocations(ctx context.Context, projectId, year int, weeks []int) (ProjectWeeklyView, error)
	ProjectInsights(ctx context.Context, projectId, year, selectedWeek int) (Insights, error)
	MyAllocations(ctx context.Context, year int, weeks []int) ([]HourEntry, error)
	UserWeekAllocations(ctx context.Context, userId, week, year int) ([]ProjectHours, error)
	// CheckEditable validates entry and verifies the caller may change it, without persisting anything.
	CheckEditable(ctx context.Context, entry HourEntry) error
	Persist(ctx context.Context, entry HourEntry) (HourEntry, error)
	CopyWeek(ctx context.Context, projectId, sourceWeek, targetWeek, year int, confirmed bool) (CopyResult, error)
	GetEntry(ctx context.Context, id int) (HourEntry, error)
	EditableAllocations(ctx context.Context, projectId int) (EditableAllocations, error)
}

type ServiceImpl struct {
	repo       Repository
	projects   ProjectReader
	gate       *Gate
	authorizer Authorizer
	eventBus   *event_bus.EventBus
}

func NewService(repo Repository, projects ProjectReader, gate *Gate, authorizer Authorizer, eventBus *event_bus.EventBus) *ServiceImpl {
	return &ServiceImpl{
		repo:       repo,
		projects:   projects,
		gate:       gate,
		authorizer: authorizer,
		eventBus:   eventBus,
	}
}

func (s *ServiceImpl) ProjectWeeklyAllocations(ctx context.Context, projectId, year int, weeks []int) (ProjectWeeklyView, error) {
	if err := week_calendar.ValidateYear(year); err != nil {
		return ProjectWeeklyView{}, err
	}
	for _, week := range weeks {
		if err := week_calendar.ValidateWeek(week); err != nil {
			return ProjectWeeklyView{}, err
		}
	}
	if !s.authorizer.Allowed(ctx, authz.ObjAllocation, authz.ActRead) {
		return ProjectWeeklyView{}, ErrReadNotAllowed
	}
	if len(weeks) == 0 {
		current := s.gate.CurrentPeriod()
		weeks = DisplayWeeks(current.Week, current.Week)
	}

	// members first, allocations are merged on top of them
	p, members, err := s.projects.Members(ctx, projectId)
	if err != nil {
		return ProjectWeeklyView{}, err
	}
	entries, err := s.repo.GetProjectEntries(ctx, projectId, year, weeks)
	if err != nil {
		return ProjectWeeklyView{}, err
	}
	team := MergeAllocationsIntoUsers(FilterTeamMembers(toTeamMembers(members)), entries)

	weekTotals := make(map[int]Totals, len(weeks))
	for _, week := range weeks {
		weekTotals[week] = AggregateProjectTotals(team, []int{week})
	}
	return ProjectWeeklyView{
		Project:    p,
		Year:       year,
		Weeks:      weeks,
		Members:    team,
		WeekTotals: weekTotals,
		Totals:     AggregateProjectTotals(team, weeks),
	}, nil
}

// ProjectInsights totals the project over the display window ending at selectedWeek.
// Outside the current year the selection alone defines the window.
func (s *ServiceImpl) ProjectInsights(ctx context.Context, projectId, year, selectedWeek int) (Insights, error) {
	if err := week_calendar.ValidateWeek(selectedWeek); err != nil {
		return Insights{}, err
	}
	currentWeek := 0
	if current := s.gate.CurrentPeriod(); current.Year == year {
		currentWeek = current.Week
	}
	view, err := s.ProjectWeeklyAllocations(ctx, projectId, year, DisplayWeeks(selectedWeek, currentWeek))
	if err != nil {
		return Insights{}, err
	}
	return Insights{
		Project:     view.Project,
		Year:        year,
		Weeks:       view.Weeks,
		MemberCount: len(view.Members),
		Totals:      view.Totals,
	}, nil
}

func (s *ServiceImpl) MyAllocations(ctx context.Context, year int, weeks []int) ([]HourEntry, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	if err := week_calendar.ValidateYear(year); err != nil {
		return nil, err
	}
	if !s.authorizer.Allowed(ctx, authz.ObjAllocation, authz.ActRead) {
		return nil, ErrReadNotAllowed
	}
	return s.repo.GetUserEntries(ctx, userId, year, weeks)
}

func (s *ServiceImpl) UserWeekAllocations(ctx context.Context, userId, week, year int) ([]ProjectHours, error) {
	if err := (week_calendar.Period{Year: year, Month: 1, Week: week}).Validate(); err != nil {
		return nil, err
	}
	return s.repo.GetUserWeekAllocations(ctx, userId, week, year)
}

func (s *ServiceImpl) CheckEditable(ctx context.Context, entry HourEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if !s.authorizer.Allowed(ctx, authz.ObjAllocation, authz.ActEdit) {
		return ErrEditNotAllowed
	}
	if err := s.projects.CheckAccess(ctx, entry.ProjectId); err != nil {
		return err
	}
	return s.gate.Check(ctx, entry.Week, entry.Year)
}

func (s *ServiceImpl) Persist(ctx context.Context, entry HourEntry) (HourEntry, error) {
	currentUser, err := user.CurrentUser(ctx)
	if err != nil {
		return HourEntry{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if err := s.CheckEditable(ctx, entry); err != nil {
		return HourEntry{}, err
	}
	weekRange, err := week_calendar.WeekDateRange(entry.Week, entry.Year)
	if err != nil {
		return HourEntry{}, err
	}
	entry.WeekStart = weekRange.StartDate
	entry.UpdatedBy = currentUser.Login

	saved, err := s.repo.Upsert(ctx, entry)
	if err != nil {
		return HourEntry{}, err
	}
	log.Debugf("%s saved %s hours for user %d in project %d week %d/%d",
		saved.UpdatedBy, saved.Total(), saved.UserId, saved.ProjectId, saved.Week, saved.Year)

	s.publish(ctx, event_bus.AllocationSavedType, event_bus.AllocationSaved{
		UserId:      saved.UserId,
		ProjectId:   saved.ProjectId,
		Week:        saved.Week,
		Year:        saved.Year,
		Billable:    saved.Billable,
		NonBillable: saved.NonBillable,
		Leave:       saved.Leave,
		UpdatedBy:   saved.UpdatedBy,
	})
	return saved, nil
}

// publish does not fail the caller: the entry is already stored when events go out.
func (s *ServiceImpl) publish(ctx context.Context, eventType event_bus.EventType, data any) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(event_bus.NewEvent(ctx, eventType, data)); err != nil {
		log.Errorf("failed to publish %s: %v", eventType, err)
	}
}

func toTeamMembers(members []project.Member) []TeamMember {
	team := make([]TeamMember, 0, len(members))
	for _, m := range members {
		team = append(team, TeamMember{
			UserId:    m.UserId,
			Login:     m.Login,
			Firstname: m.Firstname,
			Lastname:  m.Lastname,
			Roles:     m.Roles,
			Weeks:     map[int]Hours{},
		})
	}
	return team
}
