package allocation

import (
	"strings"
)

const displayWindow = 4

// DisplayWeeks returns the window of up to four weeks ending at the selected week, or at the
// current week when the selection lies in the past. Non-positive weeks are dropped.
func DisplayWeeks(selectedWeek, currentWeek int) []int {
	last := currentWeek
	if selectedWeek >= currentWeek {
		last = selectedWeek
	}
	weeks := make([]int, 0, displayWindow)
	for week := last - displayWindow + 1; week <= last; week++ {
		if week > 0 {
			weeks = append(weeks, week)
		}
	}
	return weeks
}

// AggregateUserWeek totals one member's hours for a week. Missing weeks count as zero.
func AggregateUserWeek(member TeamMember, week int) Totals {
	return Totals{}.Add(member.Weeks[week])
}

// AggregateProjectTotals sums hours over every member and week pair.
func AggregateProjectTotals(members []TeamMember, weeks []int) Totals {
	var totals Totals
	for _, member := range members {
		for _, week := range weeks {
			totals = totals.Add(member.Weeks[week])
		}
	}
	return totals
}

// MergeAllocationsIntoUsers left joins entries onto members by user id. Member fields are kept,
// hours are overwritten per week and entries for unknown users are ignored. The input is not modified.
func MergeAllocationsIntoUsers(members []TeamMember, entries []HourEntry) []TeamMember {
	index := make(map[int]int, len(members))
	merged := make([]TeamMember, len(members))
	for i, member := range members {
		weeks := make(map[int]Hours, len(member.Weeks))
		for week, hours := range member.Weeks {
			weeks[week] = hours
		}
		member.Weeks = weeks
		merged[i] = member
		index[member.UserId] = i
	}
	for _, entry := range entries {
		i, ok := index[entry.UserId]
		if !ok {
			continue
		}
		merged[i].Weeks[entry.Week] = entry.Hours
	}
	return merged
}

// FilterTeamMembers keeps members holding an engineering role or a "Project Lead / Manager" role.
func FilterTeamMembers(members []TeamMember) []TeamMember {
	filtered := make([]TeamMember, 0, len(members))
	for _, member := range members {
		for _, role := range member.Roles {
			if IsTeamRole(role) {
				filtered = append(filtered, member)
				break
			}
		}
	}
	return filtered
}

func IsTeamRole(roleName string) bool {
	role := strings.ToLower(roleName)
	if strings.Contains(role, "engineer") {
		return true
	}
	return strings.Contains(role, "project lead") && strings.Contains(role, "manager")
}
