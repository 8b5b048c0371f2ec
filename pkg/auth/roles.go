package auth

import (
	"github.com/croftlabs/croft/pkg/types"
)

// HasRole reports whether the session user carries the role. No session
// means no roles.
func (s *Service) HasRole(role types.Role) bool {
	user := s.CurrentUser()
	return user != nil && user.HasRole(role)
}

// HasAnyRole reports whether the session user carries at least one of the
// given roles.
func (s *Service) HasAnyRole(roles ...types.Role) bool {
	user := s.CurrentUser()
	if user == nil {
		return false
	}
	for _, role := range roles {
		if user.HasRole(role) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the session user is an administrator.
func (s *Service) IsAdmin() bool {
	return s.HasRole(types.RoleAdmin)
}

// CanManageResources reports whether the session user may mutate cluster
// resources. Admins and operators can; developers and viewers cannot.
func (s *Service) CanManageResources() bool {
	return s.HasAnyRole(types.RoleAdmin, types.RoleOperator)
}

// IsNodeAgent reports whether the session belongs to a worker node agent.
func (s *Service) IsNodeAgent() bool {
	return s.HasRole(types.RoleNode)
}

// RequireAuthentication fails with UNAUTHORIZED when no session is
// installed and SESSION_EXPIRED when the installed session has lapsed.
func (s *Service) RequireAuthentication() error {
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()

	if session == nil {
		return types.NewError(types.CodeUnauthorized, "authentication required")
	}
	if session.Expired(now()) {
		return types.NewError(types.CodeSessionExpired, "session has expired")
	}
	return nil
}

// RequireRole fails with FORBIDDEN when the authenticated user lacks the
// role. Authentication is checked first.
func (s *Service) RequireRole(role types.Role) error {
	if err := s.RequireAuthentication(); err != nil {
		return err
	}
	if !s.HasRole(role) {
		return types.Errorf(types.CodeForbidden, "role %s required", role)
	}
	return nil
}

// RequireAnyRole fails with FORBIDDEN when the authenticated user carries
// none of the roles.
func (s *Service) RequireAnyRole(roles ...types.Role) error {
	if err := s.RequireAuthentication(); err != nil {
		return err
	}
	if !s.HasAnyRole(roles...) {
		return types.NewError(types.CodeForbidden, "insufficient role")
	}
	return nil
}
