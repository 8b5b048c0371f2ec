package auth

import (
	"context"

	"github.com/croftlabs/croft/pkg/types"
)

// Provider is the pluggable identity backend. Croft ships no identity
// store of its own; deployments inject an implementation backed by their
// identity service. Every call takes a context because providers talk to
// the network.
//
// Providers should return *types.Error with one of the auth error codes
// (USER_ALREADY_EXISTS, INVALID_CREDENTIALS, SESSION_EXPIRED,
// RATE_LIMIT_EXCEEDED, ACCOUNT_LOCKED, USER_NOT_FOUND). Other errors pass
// through the service unchanged.
type Provider interface {
	RegisterUser(ctx context.Context, email, password, displayName string) (*types.UserSession, error)
	LoginUser(ctx context.Context, email, password string) (*types.UserSession, error)
	LogoutUser(ctx context.Context, accessToken string) error
	RefreshSession(ctx context.Context, refreshToken string) (*types.UserSession, error)
	GetUserByID(ctx context.Context, id string) (*types.User, error)
	VerifyToken(ctx context.Context, accessToken string) (*types.User, error)
	UpdateUser(ctx context.Context, id string, patch UserPatch) (*types.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// UserPatch is a partial user update. Nil fields are left unchanged.
type UserPatch struct {
	DisplayName *string
	Roles       *[]types.Role
}
