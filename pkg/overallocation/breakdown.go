package overallocation

import (
	"github.com/shopspring/decimal"
	"github.com/tppms/tppms/pkg/allocation"
)

// Breakdown is a user's week across all projects.
type Breakdown struct {
	UserId          int
	UserName        string
	Week            int
	Year            int
	Totals          allocation.Totals
	Limit           decimal.Decimal
	OverBy          decimal.Decimal
	IsOverallocated bool
	Allocations     []allocation.ProjectHours
}

func NewBreakdown(userId int, userName string, week, year int, allocations []allocation.ProjectHours, limit int) Breakdown {
	var totals allocation.Totals
	for _, a := range allocations {
		totals = totals.Add(a.Hours)
	}
	limitHours := decimal.NewFromInt(int64(limit))
	return Breakdown{
		UserId:          userId,
		UserName:        userName,
		Week:            week,
		Year:            year,
		Totals:          totals,
		Limit:           limitHours,
		OverBy:          decimal.Max(decimal.Zero, totals.Total.Sub(limitHours)),
		IsOverallocated: totals.Total.GreaterThan(limitHours),
		Allocations:     allocations,
	}
}
