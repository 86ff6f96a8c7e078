package allocation

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/tppms/tppms/internal/authz"
	"github.com/tppms/tppms/pkg/project"
	"github.com/tppms/tppms/pkg/week_calendar"
)

// editableSpan is how many weeks either side of the current week the editor offers.
const editableSpan = 3

// EditableAllocations is the part of a project's allocation grid the caller may change.
type EditableAllocations struct {
	Project     project.Project
	CurrentWeek int
	Weeks       []week_calendar.Range
	Entries     []HourEntry
}

// GetEntry returns the entry with id when the caller can access its project.
func (s *ServiceImpl) GetEntry(ctx context.Context, id int) (HourEntry, error) {
	entry, err := s.repo.GetEntry(ctx, id)
	if err != nil {
		return HourEntry{}, err
	}
	if err := s.projects.CheckAccess(ctx, entry.ProjectId); err != nil {
		return HourEntry{}, err
	}
	return entry, nil
}

// EditableAllocations returns the weeks of the current year around the current week that pass
// the edit gate for the caller, with the project's entries in those weeks.
func (s *ServiceImpl) EditableAllocations(ctx context.Context, projectId int) (EditableAllocations, error) {
	if !s.authorizer.Allowed(ctx, authz.ObjAllocation, authz.ActEdit) {
		return EditableAllocations{}, ErrEditNotAllowed
	}
	p, err := s.projects.GetProject(ctx, projectId)
	if err != nil {
		return EditableAllocations{}, err
	}

	current := s.gate.CurrentPeriod()
	weeks := make([]week_calendar.Range, 0, 2*editableSpan+1)
	numbers := make([]int, 0, 2*editableSpan+1)
	for week := max(1, current.Week-editableSpan); week <= min(week_calendar.MaxWeek, current.Week+editableSpan); week++ {
		if !s.gate.Editable(ctx, week, current.Year) {
			continue
		}
		r, err := week_calendar.WeekDateRange(week, current.Year)
		if err != nil {
			return EditableAllocations{}, err
		}
		weeks = append(weeks, r)
		numbers = append(numbers, week)
	}

	// the current week always passes the gate, so numbers is never empty here
	entries, err := s.repo.GetProjectEntries(ctx, projectId, current.Year, numbers)
	if err != nil {
		return EditableAllocations{}, err
	}
	log.Debugf("project %d has %d entries in %d editable weeks", projectId, len(entries), len(weeks))
	return EditableAllocations{
		Project:     p,
		CurrentWeek: current.Week,
		Weeks:       weeks,
		Entries:     entries,
	}, nil
}
