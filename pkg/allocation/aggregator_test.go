package allocation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hours(billable, nonBillable, leave int64) Hours {
	return Hours{
		Billable:    decimal.NewFromInt(billable),
		NonBillable: decimal.NewFromInt(nonBillable),
		Leave:       decimal.NewFromInt(leave),
	}
}

func totals(billable, nonBillable, leave, total int64) Totals {
	return Totals{
		Billable:    decimal.NewFromInt(billable),
		NonBillable: decimal.NewFromInt(nonBillable),
		Leave:       decimal.NewFromInt(leave),
		Total:       decimal.NewFromInt(total),
	}
}

func assertTotals(t *testing.T, expected, actual Totals) {
	t.Helper()
	assert.True(t, expected.Equal(actual), "expected %+v, got %+v", expected, actual)
}

func TestDisplayWeeks(t *testing.T) {
	tests := []struct {
		name     string
		selected int
		current  int
		expect   []int
	}{
		{"selection ahead of now ends at the selection", 10, 8, []int{7, 8, 9, 10}},
		{"selection equal to now", 8, 8, []int{5, 6, 7, 8}},
		{"past selection ends at now", 3, 8, []int{5, 6, 7, 8}},
		{"drops non-positive weeks near year start", 2, 2, []int{1, 2}},
		{"first week", 1, 1, []int{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, DisplayWeeks(tt.selected, tt.current))
		})
	}
}

func TestAggregateUserWeek(t *testing.T) {
	member := TeamMember{UserId: 1, Weeks: map[int]Hours{32: hours(30, 5, 2)}}

	assertTotals(t, totals(30, 5, 2, 37), AggregateUserWeek(member, 32))
	assertTotals(t, Totals{}, AggregateUserWeek(member, 33))
	assertTotals(t, Totals{}, AggregateUserWeek(TeamMember{UserId: 2}, 32))
}

func TestAggregateProjectTotals(t *testing.T) {
	members := []TeamMember{
		{UserId: 1, Weeks: map[int]Hours{31: hours(10, 0, 0), 32: hours(20, 4, 0)}},
		{UserId: 2, Weeks: map[int]Hours{32: hours(0, 0, 8), 33: hours(40, 0, 0)}},
	}

	assertTotals(t, totals(30, 4, 8, 42), AggregateProjectTotals(members, []int{31, 32}))
	assertTotals(t, Totals{}, AggregateProjectTotals(members, nil))
	assertTotals(t, Totals{}, AggregateProjectTotals(nil, []int{32}))
}

func TestMergeAllocationsIntoUsers(t *testing.T) {
	members := []TeamMember{
		{UserId: 1, Firstname: "Alice", Roles: []string{"Engineer"}, Weeks: map[int]Hours{31: hours(1, 0, 0)}},
		{UserId: 2, Firstname: "Bob", Roles: []string{"Jr. Engineer"}},
	}
	entries := []HourEntry{
		{UserId: 1, Week: 31, Hours: hours(8, 0, 0)},
		{UserId: 1, Week: 32, Hours: hours(30, 5, 0)},
		{UserId: 3, Week: 32, Hours: hours(40, 0, 0)},
	}

	t.Run("should keep member fields and overwrite hours by week", func(t *testing.T) {
		merged := MergeAllocationsIntoUsers(members, entries)

		require.Len(t, merged, 2)
		assert.Equal(t, "Alice", merged[0].Firstname)
		assert.Equal(t, []string{"Engineer"}, merged[0].Roles)
		assertTotals(t, totals(8, 0, 0, 8), AggregateUserWeek(merged[0], 31))
		assertTotals(t, totals(30, 5, 0, 35), AggregateUserWeek(merged[0], 32))
		assert.Empty(t, merged[1].Weeks)
	})

	t.Run("should be idempotent", func(t *testing.T) {
		once := MergeAllocationsIntoUsers(members, entries)
		twice := MergeAllocationsIntoUsers(once, entries)

		assert.Equal(t, once, twice)
	})

	t.Run("should not modify its input", func(t *testing.T) {
		MergeAllocationsIntoUsers(members, entries)

		assertTotals(t, totals(1, 0, 0, 1), AggregateUserWeek(members[0], 31))
		assert.Nil(t, members[1].Weeks)
	})
}

func TestFilterTeamMembers(t *testing.T) {
	tests := []struct {
		role     string
		included bool
	}{
		{"Engineer", true},
		{"Jr. Engineer", true},
		{"Testing Engineer", true},
		{"Project Lead / Manager", true},
		{"project lead / manager", true},
		{"HR Manager", false},
		{"HR", false},
		{"Project Lead", false},
		{"Project Owner", false},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			filtered := FilterTeamMembers([]TeamMember{{UserId: 1, Roles: []string{tt.role}}})
			assert.Equal(t, tt.included, len(filtered) == 1)
		})
	}

	t.Run("should keep a member when any role qualifies", func(t *testing.T) {
		filtered := FilterTeamMembers([]TeamMember{{UserId: 1, Roles: []string{"HR", "Engineer"}}})
		assert.Len(t, filtered, 1)
	})

	t.Run("should drop members without roles", func(t *testing.T) {
		assert.Empty(t, FilterTeamMembers([]TeamMember{{UserId: 1}}))
	})
}

func TestProjectTotalsAfterRoleFilter(t *testing.T) {
	// given
	alice := TeamMember{UserId: 1, Firstname: "Alice", Roles: []string{"Engineer"}}
	bob := TeamMember{UserId: 2, Firstname: "Bob", Roles: []string{"HR"}}
	entries := []HourEntry{
		{UserId: 1, ProjectId: 7, Week: 32, Year: 2025, Hours: hours(30, 5, 0)},
		{UserId: 2, ProjectId: 7, Week: 32, Year: 2025, Hours: hours(40, 0, 0)},
	}

	// when
	team := MergeAllocationsIntoUsers(FilterTeamMembers([]TeamMember{alice, bob}), entries)
	result := AggregateProjectTotals(team, []int{32})

	// then
	require.Len(t, team, 1)
	assertTotals(t, totals(30, 5, 0, 35), result)
}

func TestHours_Validate(t *testing.T) {
	assert.NoError(t, hours(40, 0, 0).Validate())
	assert.NoError(t, hours(0, 0, 0).Validate())

	err := hours(-1, 0, 0).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "billable_hrs")

	err = hours(0, 41, 0).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non_billable_hrs")
}
