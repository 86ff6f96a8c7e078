package bench

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tppms/tppms/internal/rest"
	"github.com/tppms/tppms/pkg/allocation"
)

type Category string

const (
	CategoryFullyBenched   Category = "fully-benched"
	CategoryPartialBenched Category = "partial-benched"
	CategoryNonBillable    Category = "non-billable"
	CategoryOverUtilised   Category = "over-utilised"
)

var Categories = []Category{CategoryFullyBenched, CategoryPartialBenched, CategoryNonBillable, CategoryOverUtilised}

func ParseCategory(value string) (Category, error) {
	for _, c := range Categories {
		if string(c) == value {
			return c, nil
		}
	}
	return "", rest.NewValidationError("category", fmt.Sprintf("unknown bench category %q", value))
}

// Matches classifies a user's cross-project week. A user may fall into several categories.
func (c Category) Matches(t allocation.Totals, limit decimal.Decimal) bool {
	switch c {
	case CategoryFullyBenched:
		return t.Billable.Add(t.NonBillable).IsZero()
	case CategoryPartialBenched:
		return t.Total.IsPositive() && t.Total.LessThan(limit)
	case CategoryNonBillable:
		return t.NonBillable.IsPositive()
	case CategoryOverUtilised:
		return t.Total.GreaterThan(limit)
	default:
		return false
	}
}

// UserWeek is one user's week summed over all projects.
type UserWeek struct {
	UserId    int
	Name      string
	Skill     string
	Projects  []string
	UpdatedBy string
	WeekStart time.Time
	Remark    string
	allocation.Totals
}

type Summary struct {
	FullyBenched   int
	PartialBenched int
	NonBillable    int
	OverUtilised   int
	ActualYear     int
	ActualWeek     int
}

// Report lists the users of one category for the week actually reported on.
type Report struct {
	Category   Category
	Users      []UserWeek
	ActualYear int
	ActualWeek int
}

func Summarize(users []UserWeek, limit decimal.Decimal) Summary {
	var s Summary
	for _, u := range users {
		if CategoryFullyBenched.Matches(u.Totals, limit) {
			s.FullyBenched++
		}
		if CategoryPartialBenched.Matches(u.Totals, limit) {
			s.PartialBenched++
		}
		if CategoryNonBillable.Matches(u.Totals, limit) {
			s.NonBillable++
		}
		if CategoryOverUtilised.Matches(u.Totals, limit) {
			s.OverUtilised++
		}
	}
	return s
}

func Filter(users []UserWeek, category Category, limit decimal.Decimal) []UserWeek {
	filtered := make([]UserWeek, 0)
	for _, u := range users {
		if category.Matches(u.Totals, limit) {
			filtered = append(filtered, u)
		}
	}
	return filtered
}

const MaxRemarkLength = 250

type Remark struct {
	UserId int
	Week   int
	Remark string
}
