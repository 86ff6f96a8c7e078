package project

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	StatusActive    = 1
	StatusOnHold    = 2
	StatusCompleted = 3
	StatusArchived  = 5
	StatusClosed    = 9
)

// StatusLabel names a project status for display.
func StatusLabel(status int) string {
	switch status {
	case StatusActive:
		return "Active"
	case StatusOnHold:
		return "On Hold"
	case StatusCompleted:
		return "Completed"
	case StatusArchived:
		return "Archived"
	case StatusClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

type Project struct {
	Id          int
	Name        string
	Description string
	Status      int
	// RoleName is the caller's role in the project, empty for listings not scoped to a user.
	RoleName string
}

// Summary is a project with its membership size and all hours ever booked on it.
type Summary struct {
	Project
	MemberCount int
	TotalHours  decimal.Decimal
}

type Member struct {
	UserId    int
	Login     string
	Firstname string
	Lastname  string
	Roles     []string
}

func (m Member) RoleName() string {
	return strings.Join(m.Roles, ", ")
}

// IsOwnerRole reports whether a project role grants ownership of the project.
func IsOwnerRole(roleName string) bool {
	return roleName == "Project Owner" ||
		roleName == "Project Creator" ||
		strings.Contains(roleName, "Manager") ||
		strings.Contains(roleName, "Admin")
}
