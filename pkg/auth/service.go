package auth

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/croftlabs/croft/pkg/config"
	"github.com/croftlabs/croft/pkg/events"
	"github.com/croftlabs/croft/pkg/log"
	"github.com/croftlabs/croft/pkg/types"
)

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Service wraps a Provider with local validation, a single observable
// session, and an auto-refresh loop. All session access is serialized
// through the service's mutex; the provider is the only suspension point.
type Service struct {
	provider Provider
	broker   *events.Broker
	cfg      config.Auth
	logger   zerolog.Logger

	mu      sync.Mutex
	session *types.UserSession

	refreshMu sync.Mutex
	running   bool
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// New creates an auth service. The broker may be nil.
func New(provider Provider, broker *events.Broker, cfg config.Auth) *Service {
	return &Service{
		provider: provider,
		broker:   broker,
		cfg:      cfg,
		logger:   log.WithComponent("auth"),
	}
}

// Register validates the input locally, creates the account through the
// provider, and installs the returned session.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (*types.UserSession, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	session, err := s.provider.RegisterUser(ctx, email, password, displayName)
	if err != nil {
		return nil, err
	}
	s.install(session, events.EventSessionInstalled)
	return cloneSession(session), nil
}

// Login authenticates through the provider and installs the session.
func (s *Service) Login(ctx context.Context, email, password string) (*types.UserSession, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, types.NewError(types.CodeValidation, "a password is required")
	}

	session, err := s.provider.LoginUser(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.install(session, events.EventSessionInstalled)
	return cloneSession(session), nil
}

// Logout revokes the current session with the provider and clears it
// locally. Clearing happens even when the provider call fails; a dead
// token is not worth keeping.
func (s *Service) Logout(ctx context.Context) error {
	s.mu.Lock()
	session := s.session
	s.session = nil
	s.mu.Unlock()

	if session == nil {
		return nil
	}
	s.publish(events.New(events.EventSessionCleared, "session cleared"))
	return s.provider.LogoutUser(ctx, session.AccessToken)
}

// Refresh exchanges the current refresh token for a new session. An
// expired or revoked token clears the session and returns SESSION_EXPIRED.
func (s *Service) Refresh(ctx context.Context) (*types.UserSession, error) {
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()
	if session == nil {
		return nil, types.NewError(types.CodeUnauthorized, "no active session")
	}

	fresh, err := s.provider.RefreshSession(ctx, session.RefreshToken)
	if err != nil {
		if types.IsCode(err, types.CodeSessionExpired) {
			s.mu.Lock()
			s.session = nil
			s.mu.Unlock()
			s.publish(events.New(events.EventSessionCleared, "session expired"))
		}
		return nil, err
	}
	s.install(fresh, events.EventSessionRefreshed)
	return cloneSession(fresh), nil
}

// VerifyToken resolves an access token to its user through the provider.
func (s *Service) VerifyToken(ctx context.Context, accessToken string) (*types.User, error) {
	if accessToken == "" {
		return nil, types.NewError(types.CodeUnauthorized, "an access token is required")
	}
	return s.provider.VerifyToken(ctx, accessToken)
}

// GetUser fetches a user by ID through the provider.
func (s *Service) GetUser(ctx context.Context, id string) (*types.User, error) {
	return s.provider.GetUserByID(ctx, id)
}

// UpdateUser applies a partial update through the provider. When the
// updated user is the session user, the cached copy is replaced.
func (s *Service) UpdateUser(ctx context.Context, id string, patch UserPatch) (*types.User, error) {
	user, err := s.provider.UpdateUser(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.session != nil && s.session.User != nil && s.session.User.ID == user.ID {
		s.session.User = cloneUser(user)
	}
	s.mu.Unlock()
	return user, nil
}

// DeleteUser removes an account through the provider. Deleting the
// session user clears the session.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if err := s.provider.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	if s.session != nil && s.session.User != nil && s.session.User.ID == id {
		s.session = nil
		s.publish(events.New(events.EventSessionCleared, "session user deleted"))
	}
	s.mu.Unlock()
	return nil
}

// CurrentSession returns a copy of the active session, or nil.
func (s *Service) CurrentSession() *types.UserSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSession(s.session)
}

// CurrentUser returns a copy of the session user, or nil.
func (s *Service) CurrentUser() *types.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	return cloneUser(s.session.User)
}

func (s *Service) install(session *types.UserSession, eventType events.EventType) {
	s.mu.Lock()
	s.session = cloneSession(session)
	s.mu.Unlock()

	email := ""
	if session.User != nil {
		email = session.User.Email
	}
	s.logger.Info().Str("email", email).Str("event", string(eventType)).Msg("session updated")
	s.publish(events.New(eventType, "session updated", "email", email))
}

func (s *Service) publish(event *events.Event) {
	if s.broker != nil {
		s.broker.Publish(event)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if !emailRe.MatchString(email) {
		return types.Errorf(types.CodeValidation, "invalid email address %q", email)
	}
	return nil
}

// validatePassword enforces the password policy: at least 8 characters
// with an upper-case letter, a lower-case letter, and a digit. Special
// characters are welcome but not required.
func validatePassword(password string) error {
	if len(password) < 8 {
		return types.NewError(types.CodeValidation, "password must be at least 8 characters")
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return types.NewError(types.CodeValidation,
			"password must contain an upper-case letter, a lower-case letter, and a digit")
	}
	return nil
}

func cloneSession(s *types.UserSession) *types.UserSession {
	if s == nil {
		return nil
	}
	dup := *s
	dup.User = cloneUser(s.User)
	return &dup
}

func cloneUser(u *types.User) *types.User {
	if u == nil {
		return nil
	}
	dup := *u
	dup.Roles = append([]types.Role(nil), u.Roles...)
	return &dup
}

// now is swapped in tests to drive expiry without sleeping.
var now = time.Now
