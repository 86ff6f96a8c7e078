package user

import (
	"strings"
	"time"
)

const (
	StatusActive   = 1
	StatusNew      = 2
	StatusInactive = 3
)

type User struct {
	Id             int
	Login          string
	Firstname      string
	Lastname       string
	Admin          bool
	Status         int
	CreatedOn      time.Time
	HashedPassword string
}

func (u User) FullName() string {
	return strings.TrimSpace(u.Firstname + " " + u.Lastname)
}

func (u User) IsActive() bool {
	return u.Status == StatusActive
}
