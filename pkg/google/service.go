package google

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/tppms/tppms/internal/config"
	"github.com/tppms/tppms/internal/rest"
	"github.com/tppms/tppms/internal/utils"
	"github.com/tppms/tppms/pkg/session"
	"github.com/tppms/tppms/pkg/user"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleoauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// stateTtl bounds the time between starting a Google login and its callback.
const stateTtl = 10 * time.Minute

var (
	ErrNotConfigured   = errors.New("google login is not configured")
	ErrUnknownAccount  = errors.New("google account is not a TPPMS user")
	ErrUnverifiedEmail = errors.New("google account email is not verified")
	ErrForeignFinalUrl = errors.New("final url is not a known frontend")
)

type UserReader interface {
	GetUserByLogin(ctx context.Context, login string) (user.User, error)
}

type SessionStarter interface {
	Start(ctx context.Context, u user.User) (session.Session, error)
}

type Service interface {
	// LoginURL starts a login and returns the Google consent url.
	LoginURL(ctx context.Context, finalUrl string) (string, error)
	// CompleteLogin exchanges the callback code and opens a session for the matching user.
	CompleteLogin(ctx context.Context, code, state string) (string, session.Session, error)
}

type ServiceImpl struct {
	oauthConfig *oauth2.Config
	host        string
	origins     map[string]bool
	states      StateRepository
	users       UserReader
	sessions    SessionStarter
	clock       utils.Clock

	exchange  func(ctx context.Context, code string) (*oauth2.Token, error)
	userEmail func(ctx context.Context, token *oauth2.Token) (string, error)
}

func NewService(cfg config.Application, states StateRepository, users UserReader, sessions SessionStarter, clock utils.Clock) *ServiceImpl {
	oauthConfig := &oauth2.Config{
		ClientID:     cfg.Google.ClientId,
		ClientSecret: cfg.Google.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.Host + "/api/auth/google/callback",
		Scopes:       []string{googleoauth2.OpenIDScope, googleoauth2.UserinfoEmailScope, googleoauth2.UserinfoProfileScope},
	}
	s := &ServiceImpl{
		oauthConfig: oauthConfig,
		host:        strings.TrimSuffix(cfg.Host, "/"),
		origins:     map[string]bool{},
		states:      states,
		users:       users,
		sessions:    sessions,
		clock:       clock,
	}
	s.exchange = func(ctx context.Context, code string) (*oauth2.Token, error) {
		return oauthConfig.Exchange(ctx, code)
	}
	s.userEmail = s.fetchUserEmail
	for _, origin := range append([]string{cfg.Host}, cfg.Frontend.Origins...) {
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			s.origins[originOf(parsed)] = true
		}
	}
	return s
}

func (s *ServiceImpl) LoginURL(ctx context.Context, finalUrl string) (string, error) {
	if s.oauthConfig.ClientID == "" {
		return "", ErrNotConfigured
	}
	finalUrl, err := s.resolveFinalUrl(finalUrl)
	if err != nil {
		return "", err
	}
	nonce := uuid.New()
	if err := s.states.Save(ctx, nonce, finalUrl); err != nil {
		return "", err
	}
	log.Tracef("Redirecting to Google auth URL with nonce: %s", nonce)
	return s.oauthConfig.AuthCodeURL(nonce.String(), oauth2.AccessTypeOnline), nil
}

func (s *ServiceImpl) CompleteLogin(ctx context.Context, code, state string) (string, session.Session, error) {
	nonce, err := uuid.Parse(state)
	if err != nil {
		return "", session.Session{}, ErrInvalidState
	}
	finalUrl, err := s.states.Consume(ctx, nonce, s.clock.Now().Add(-stateTtl))
	if err != nil {
		return "", session.Session{}, err
	}

	token, err := s.exchange(ctx, code)
	if err != nil {
		return finalUrl, session.Session{}, fmt.Errorf("unable to exchange code for token: %w", err)
	}
	email, err := s.userEmail(ctx, token)
	if err != nil {
		return finalUrl, session.Session{}, err
	}

	u, err := s.users.GetUserByLogin(ctx, email)
	if errors.Is(err, user.ErrUserNotFound) {
		log.Infof("Google login for unknown account %s", email)
		return finalUrl, session.Session{}, ErrUnknownAccount
	} else if err != nil {
		return finalUrl, session.Session{}, err
	}

	sess, err := s.sessions.Start(ctx, u)
	if err != nil {
		return finalUrl, session.Session{}, err
	}
	return finalUrl, sess, nil
}

// resolveFinalUrl only lets a login return to a known frontend, since the session id travels with the redirect.
// Empty urls return to Host and absolute paths are resolved against it.
func (s *ServiceImpl) resolveFinalUrl(finalUrl string) (string, error) {
	if finalUrl == "" {
		return s.host + "/", nil
	}
	parsed, err := url.Parse(finalUrl)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrForeignFinalUrl, rest.NewValidationError("finalUrl", "Invalid final url"))
	}
	if !parsed.IsAbs() && parsed.Host == "" && strings.HasPrefix(parsed.Path, "/") {
		return s.host + parsed.RequestURI(), nil
	}
	if !s.origins[originOf(parsed)] {
		log.Warnf("Rejecting Google login returning to %s", finalUrl)
		return "", fmt.Errorf("%w: %w", ErrForeignFinalUrl, rest.NewValidationError("finalUrl", "Final url must point at the application"))
	}
	return finalUrl, nil
}

func originOf(u *url.URL) string {
	return strings.ToLower(u.Scheme + "://" + u.Host)
}

func (s *ServiceImpl) fetchUserEmail(ctx context.Context, token *oauth2.Token) (string, error) {
	client := s.oauthConfig.Client(ctx, token)
	service, err := googleoauth2.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return "", fmt.Errorf("unable to create Google oauth2 client: %w", err)
	}
	info, err := service.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to retrieve Google user info: %w", err)
	}
	if info.VerifiedEmail == nil || !*info.VerifiedEmail {
		return "", ErrUnverifiedEmail
	}
	return info.Email, nil
}
