// Package identity models the external identity provider as a black box
// yielding a stable user id and the email used as the sharing-grantee key.
package identity

import (
	"context"
	"errors"
	"os"
)

// User is the signed-in identity.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Provider completes an external sign-in flow and yields the user identity.
// The OAuth handshake itself happens outside this process.
type Provider interface {
	SignIn(ctx context.Context) (User, error)
}

// ErrNotConfigured is returned when no identity has been configured for the
// session; callers continue in local-only mode.
var ErrNotConfigured = errors.New("identity provider not configured")

// EnvProvider reads a pre-established identity from the environment:
//
//	CRADLECORE_IDENTITY_UID: stable user id (required)
//	CRADLECORE_IDENTITY_EMAIL: email used as sharing key (required)
//	CRADLECORE_IDENTITY_NAME: display name (optional)
type EnvProvider struct{}

// SignIn resolves the identity from process environment.
func (EnvProvider) SignIn(context.Context) (User, error) {
	uid := os.Getenv("CRADLECORE_IDENTITY_UID")
	email := os.Getenv("CRADLECORE_IDENTITY_EMAIL")
	if uid == "" || email == "" {
		return User{}, ErrNotConfigured
	}
	return User{
		ID:    uid,
		Email: email,
		Name:  os.Getenv("CRADLECORE_IDENTITY_NAME"),
	}, nil
}

// StaticProvider returns a fixed user, for tests and offline tooling.
type StaticProvider struct {
	User User
}

// SignIn returns the configured user.
func (p StaticProvider) SignIn(context.Context) (User, error) {
	if p.User.ID == "" {
		return User{}, ErrNotConfigured
	}
	return p.User, nil
}
