package session

import (
	"time"

	"github.com/google/uuid"
)

// Header carries the session id on every authenticated request.
const Header = "X-Session-ID"

type Session struct {
	Id        uuid.UUID
	UserId    int
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
