package allocation

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tppms/tppms/internal/rest"
	"github.com/tppms/tppms/pkg/week_calendar"
)

// MaxFieldHours bounds each single hour field of an entry.
const MaxFieldHours = 40

var maxFieldHours = decimal.NewFromInt(MaxFieldHours)

// Hours is the billable / non-billable / leave split of one user-project-week.
type Hours struct {
	Billable    decimal.Decimal
	NonBillable decimal.Decimal
	Leave       decimal.Decimal
}

func NewHours(billable, nonBillable, leave float64) Hours {
	return Hours{
		Billable:    decimal.NewFromFloat(billable),
		NonBillable: decimal.NewFromFloat(nonBillable),
		Leave:       decimal.NewFromFloat(leave),
	}
}

func (h Hours) Total() decimal.Decimal {
	return h.Billable.Add(h.NonBillable).Add(h.Leave)
}

func (h Hours) IsZero() bool {
	return h.Total().IsZero()
}

func (h Hours) Validate() error {
	fields := []struct {
		name  string
		value decimal.Decimal
	}{
		{"billable_hrs", h.Billable},
		{"non_billable_hrs", h.NonBillable},
		{"leave_hrs", h.Leave},
	}
	for _, f := range fields {
		if f.value.IsNegative() {
			return rest.NewValidationError(f.name, "Hours cannot be negative")
		}
		if f.value.GreaterThan(maxFieldHours) {
			return rest.NewValidationError(f.name, fmt.Sprintf("Hours cannot exceed %d", MaxFieldHours))
		}
	}
	return nil
}

// HourEntry is keyed by (UserId, ProjectId, Week, Year). Id is assigned on first save.
type HourEntry struct {
	Id        int
	UserId    int
	ProjectId int
	Week      int
	Year      int
	Hours
	WeekStart time.Time
	UpdatedBy string
	UpdatedAt time.Time
	// ProjectName is only populated on reads.
	ProjectName string
}

func (e HourEntry) Validate() error {
	if e.UserId <= 0 {
		return rest.NewValidationError("user_id", "User ID is required")
	}
	if e.ProjectId <= 0 {
		return rest.NewValidationError("project_id", "Project ID is required")
	}
	if err := week_calendar.ValidateYear(e.Year); err != nil {
		return err
	}
	if err := week_calendar.ValidateWeek(e.Week); err != nil {
		return err
	}
	return e.Hours.Validate()
}

// ProjectHours is one row of a user's week across projects.
type ProjectHours struct {
	ProjectId   int
	ProjectName string
	RoleName    string
	Hours
}

type Totals struct {
	Billable    decimal.Decimal
	NonBillable decimal.Decimal
	Leave       decimal.Decimal
	Total       decimal.Decimal
}

func (t Totals) Add(h Hours) Totals {
	return Totals{
		Billable:    t.Billable.Add(h.Billable),
		NonBillable: t.NonBillable.Add(h.NonBillable),
		Leave:       t.Leave.Add(h.Leave),
		Total:       t.Total.Add(h.Total()),
	}
}

func (t Totals) Equal(other Totals) bool {
	return t.Billable.Equal(other.Billable) &&
		t.NonBillable.Equal(other.NonBillable) &&
		t.Leave.Equal(other.Leave) &&
		t.Total.Equal(other.Total)
}

// TeamMember is a project member with week-keyed hours for the project.
type TeamMember struct {
	UserId    int
	Login     string
	Firstname string
	Lastname  string
	Roles     []string
	Weeks     map[int]Hours
}
