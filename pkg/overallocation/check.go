package overallocation

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/tppms/tppms/internal/rest"
	"github.com/tppms/tppms/pkg/allocation"
	"github.com/tppms/tppms/pkg/week_calendar"
)

// Proposal is an unsaved edit of one user-project-week.
type Proposal struct {
	UserId    int
	ProjectId int
	Week      int
	Year      int
	allocation.Hours
}

func ProposalOf(entry allocation.HourEntry) Proposal {
	return Proposal{
		UserId:    entry.UserId,
		ProjectId: entry.ProjectId,
		Week:      entry.Week,
		Year:      entry.Year,
		Hours:     entry.Hours,
	}
}

func (p Proposal) Validate() error {
	if p.UserId <= 0 {
		return rest.NewValidationError("user_id", "User ID is required")
	}
	if p.ProjectId <= 0 {
		return rest.NewValidationError("current_project_id", "Current project ID is required")
	}
	if err := week_calendar.ValidateYear(p.Year); err != nil {
		return err
	}
	if err := week_calendar.ValidateWeek(p.Week); err != nil {
		return err
	}
	return p.Hours.Validate()
}

// Row is one project of the user's week after the proposal was applied.
type Row struct {
	ProjectId        int
	ProjectName      string
	IsCurrentProject bool
	allocation.Hours
}

type CheckResult struct {
	UserId              int
	Week                int
	Year                int
	CurrentProjectId    int
	CurrentTotal        decimal.Decimal
	NewTotal            decimal.Decimal
	CurrentProjectHours decimal.Decimal
	NewProjectHours     decimal.Decimal
	Limit               decimal.Decimal
	OverBy              decimal.Decimal
	IsOverallocated     bool
	// Degraded marks a local approximation that could not see the user's other projects.
	Degraded    bool
	Allocations []Row
}

// Check applies proposal to the user's stored week and compares the new cross-project total with limit.
// The proposal replaces the stored row of its project, or is added when the project has none.
func Check(entries []allocation.ProjectHours, proposal Proposal, limit int) CheckResult {
	return checkAgainst(entries, proposal, decimal.NewFromInt(int64(limit)))
}

func checkAgainst(entries []allocation.ProjectHours, proposal Proposal, limit decimal.Decimal) CheckResult {
	result := CheckResult{
		UserId:           proposal.UserId,
		Week:             proposal.Week,
		Year:             proposal.Year,
		CurrentProjectId: proposal.ProjectId,
		NewProjectHours:  proposal.Total(),
		Limit:            limit,
		Allocations:      make([]Row, 0, len(entries)+1),
	}

	found := false
	for _, entry := range entries {
		result.CurrentTotal = result.CurrentTotal.Add(entry.Total())
		row := Row{ProjectId: entry.ProjectId, ProjectName: entry.ProjectName, Hours: entry.Hours}
		if entry.ProjectId == proposal.ProjectId {
			found = true
			result.CurrentProjectHours = entry.Total()
			row.Hours = proposal.Hours
			row.IsCurrentProject = true
		}
		result.Allocations = append(result.Allocations, row)
	}
	if !found {
		result.Allocations = append(result.Allocations, Row{
			ProjectId:        proposal.ProjectId,
			IsCurrentProject: true,
			Hours:            proposal.Hours,
		})
	}

	for _, row := range result.Allocations {
		result.NewTotal = result.NewTotal.Add(row.Total())
	}
	sortRows(result.Allocations)
	return withVerdict(result)
}

// Fallback judges the proposal on its own. It cannot see other projects and may under-detect.
func Fallback(proposal Proposal, limit int) CheckResult {
	return withVerdict(CheckResult{
		UserId:           proposal.UserId,
		Week:             proposal.Week,
		Year:             proposal.Year,
		CurrentProjectId: proposal.ProjectId,
		NewTotal:         proposal.Total(),
		NewProjectHours:  proposal.Total(),
		Limit:            decimal.NewFromInt(int64(limit)),
		Degraded:         true,
		Allocations:      []Row{},
	})
}

func withVerdict(result CheckResult) CheckResult {
	result.IsOverallocated = result.NewTotal.GreaterThan(result.Limit)
	result.OverBy = decimal.Max(decimal.Zero, result.NewTotal.Sub(result.Limit))
	return result
}

// sortRows orders rows by total hours, highest first, then by project name.
func sortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		ti, tj := rows[i].Total(), rows[j].Total()
		if !ti.Equal(tj) {
			return ti.GreaterThan(tj)
		}
		return rows[i].ProjectName < rows[j].ProjectName
	})
}
