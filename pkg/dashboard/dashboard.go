package dashboard

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tppms/tppms/internal/rest"
	"github.com/tppms/tppms/pkg/allocation"
	"github.com/tppms/tppms/pkg/project"
	"github.com/tppms/tppms/pkg/user"
)

const (
	DefaultAdminPageSize = 20
	DefaultOwnerPageSize = 10
	MaxPageSize          = 1000
)

// Page selects a 1-based page of a listing.
type Page struct {
	Number int
	Size   int
}

func (p Page) Validate() error {
	if p.Number < 1 {
		return rest.NewValidationError("page", "Page must be at least 1")
	}
	if p.Size < 1 || p.Size > MaxPageSize {
		return rest.NewValidationError("page_size", fmt.Sprintf("Page size must be between 1 and %d", MaxPageSize))
	}
	return nil
}

type Pagination struct {
	Page  int
	Size  int
	Total int
	Pages int
}

type Listing[T any] struct {
	Items      []T
	Pagination Pagination
}

// paginate cuts page out of items. Pages past the end are empty.
func paginate[T any](items []T, page Page) Listing[T] {
	total := len(items)
	from := min((page.Number-1)*page.Size, total)
	to := min(from+page.Size, total)
	return Listing[T]{
		Items: items[from:to],
		Pagination: Pagination{
			Page:  page.Number,
			Size:  page.Size,
			Total: total,
			Pages: (total + page.Size - 1) / page.Size,
		},
	}
}

type UserCounts struct {
	Active   int
	New      int
	Inactive int
}

type ProjectCounts struct {
	Active    int
	OnHold    int
	Completed int
}

type AdminSummary struct {
	Users    UserCounts
	Projects ProjectCounts
}

var userStatuses = map[string]int{
	"active":   user.StatusActive,
	"new":      user.StatusNew,
	"inactive": user.StatusInactive,
}

var projectStatuses = map[string]int{
	"active":    project.StatusActive,
	"on-hold":   project.StatusOnHold,
	"completed": project.StatusCompleted,
}

func ParseUserStatus(name string) (int, error) {
	status, ok := userStatuses[name]
	if !ok {
		return 0, rest.NewValidationError("status", "Unknown user status "+name)
	}
	return status, nil
}

func ParseProjectStatus(name string) (int, error) {
	status, ok := projectStatuses[name]
	if !ok {
		return 0, rest.NewValidationError("status", "Unknown project status "+name)
	}
	return status, nil
}

// containsFold reports whether any of values contains search, ignoring case. An empty search matches.
func containsFold(search string, values ...string) bool {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return true
	}
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), search) {
			return true
		}
	}
	return false
}

// Sort keys of the owner dashboard.
const (
	SortByName         = "name"
	SortByAllocated    = "allocated"
	SortByNotAllocated = "not_allocated"
	SortByStatus       = "status"
)

// Status filters of the owner dashboard.
const (
	FilterAll       = "all"
	FilterActive    = "active"
	FilterOnHold    = "onhold"
	FilterCompleted = "completed"
)

var ownerStatusFilters = map[string]int{
	FilterActive:    project.StatusActive,
	FilterOnHold:    project.StatusOnHold,
	FilterCompleted: project.StatusCompleted,
}

// OwnerQuery selects the period, filter, order and page of the owner dashboard.
// Weeks win over Month; without either the display window of the current week is used.
type OwnerQuery struct {
	Year       int
	Month      int
	Weeks      []int
	Search     string
	Status     string
	SortBy     string
	Descending bool
	Page       Page
}

func (q OwnerQuery) Validate() error {
	if q.Month != 0 && (q.Month < 1 || q.Month > 12) {
		return rest.NewValidationError("month", "Month must be between 1 and 12")
	}
	if _, ok := ownerStatusFilters[q.Status]; !ok && q.Status != FilterAll && q.Status != "" {
		return rest.NewValidationError("status", "Status must be one of all, active, onhold, completed")
	}
	switch q.SortBy {
	case SortByName, SortByAllocated, SortByNotAllocated, SortByStatus:
	default:
		return rest.NewValidationError("sort_by", "Sort must be one of name, allocated, not_allocated, status")
	}
	return q.Page.Validate()
}

func (q OwnerQuery) keeps(p project.Project) bool {
	if status, ok := ownerStatusFilters[q.Status]; ok && p.Status != status {
		return false
	}
	return containsFold(q.Search, p.Name, p.Description)
}

// OwnerProject is one row of the owner dashboard. Capacity is the weekly limit for every team
// member in every week of the period.
type OwnerProject struct {
	Project                project.Project
	MemberCount            int
	Totals                 allocation.Totals
	Capacity               decimal.Decimal
	AllocatedPercentage    decimal.Decimal
	NotAllocatedPercentage decimal.Decimal
}

type OwnerDashboard struct {
	Year     int
	Weeks    []int
	Projects Listing[OwnerProject]
	Query    OwnerQuery
}

var hundred = decimal.NewFromInt(100)

// Utilisation returns the share of capacity booked, capped at 100 and rounded to one decimal,
// and the remaining share. A zero capacity is 0% allocated.
func Utilisation(booked, capacity decimal.Decimal) (allocated, notAllocated decimal.Decimal) {
	if !capacity.IsPositive() {
		return decimal.Zero, hundred
	}
	allocated = decimal.Min(booked.Div(capacity).Mul(hundred), hundred).Round(1)
	return allocated, hundred.Sub(allocated)
}
