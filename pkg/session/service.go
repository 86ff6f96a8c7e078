package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/tppms/tppms/internal/rest"
	"github.com/tppms/tppms/internal/utils"
	"github.com/tppms/tppms/pkg/user"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid login or password")
	ErrInactiveUser       = errors.New("user is not active")
	ErrSessionExpired     = errors.New("session expired")
)

type UserReader interface {
	GetUser(ctx context.Context, id int) (user.User, error)
	GetUserByLogin(ctx context.Context, login string) (user.User, error)
}

type Service interface {
	// Login checks the password against the stored bcrypt hash and opens a session.
	Login(ctx context.Context, login, password string) (Session, user.User, error)
	// Start opens a session for an already authenticated user.
	Start(ctx context.Context, u user.User) (Session, error)
	// Resolve returns the user owning the session id.
	Resolve(ctx context.Context, id string) (user.User, error)
	Logout(ctx context.Context, id string) error
}

type ServiceImpl struct {
	repo  Repository
	users UserReader
	clock utils.Clock
	ttl   time.Duration
}

func NewService(repo Repository, users UserReader, clock utils.Clock, ttl time.Duration) *ServiceImpl {
	return &ServiceImpl{repo: repo, users: users, clock: clock, ttl: ttl}
}

func (s *ServiceImpl) Login(ctx context.Context, login, password string) (Session, user.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return Session{}, user.User{}, rest.NewValidationError("login", "Login and password are required")
	}
	u, err := s.users.GetUserByLogin(ctx, login)
	if errors.Is(err, user.ErrUserNotFound) {
		return Session{}, user.User{}, ErrInvalidCredentials
	} else if err != nil {
		return Session{}, user.User{}, err
	}
	if u.HashedPassword == "" {
		return Session{}, user.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(password)); err != nil {
		log.Debugf("password mismatch for %s", login)
		return Session{}, user.User{}, ErrInvalidCredentials
	}

	session, err := s.Start(ctx, u)
	if err != nil {
		return Session{}, user.User{}, err
	}
	return session, u, nil
}

func (s *ServiceImpl) Start(ctx context.Context, u user.User) (Session, error) {
	if !u.IsActive() {
		return Session{}, ErrInactiveUser
	}
	now := s.clock.Now()
	session := Session{
		Id:        uuid.New(),
		UserId:    u.Id,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return Session{}, fmt.Errorf("failed to create session: %w", err)
	}
	log.Infof("user %s logged in", u.Login)
	return session, nil
}

func (s *ServiceImpl) Resolve(ctx context.Context, id string) (user.User, error) {
	sessionId, err := uuid.Parse(id)
	if err != nil {
		return user.User{}, ErrSessionNotFound
	}
	session, err := s.repo.Get(ctx, sessionId)
	if err != nil {
		return user.User{}, err
	}
	if session.Expired(s.clock.Now()) {
		if err := s.repo.Delete(ctx, sessionId); err != nil {
			log.Errorf("failed to delete expired session: %v", err)
		}
		return user.User{}, ErrSessionExpired
	}
	u, err := s.users.GetUser(ctx, session.UserId)
	if err != nil {
		return user.User{}, err
	}
	if !u.IsActive() {
		return user.User{}, ErrInactiveUser
	}
	return u, nil
}

func (s *ServiceImpl) Logout(ctx context.Context, id string) error {
	sessionId, err := uuid.Parse(id)
	if err != nil {
		return ErrSessionNotFound
	}
	return s.repo.Delete(ctx, sessionId)
}

// Sweep removes expired sessions.
func (s *ServiceImpl) Sweep(ctx context.Context) {
	deleted, err := s.repo.DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		log.Errorf("failed to delete expired sessions: %v", err)
		return
	}
	if deleted > 0 {
		log.Debugf("deleted %d expired sessions", deleted)
	}
}

// HashPassword returns the bcrypt hash stored in users.hashed_password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
