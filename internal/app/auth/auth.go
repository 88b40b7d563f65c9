/*
Package auth resolves bearer credentials into user identities.

Account creation, login and password handling belong to the external user-management
service; this package only verifies the access tokens that service issues and looks
the token holder up in the user store.
*/
package auth

import (
	"context"
	"fmt"

	"sbchat/internal/app/user"
	"sbchat/internal/pkg/auth/jwt"
)

// UserGetter is the single read the verifier needs from the user store.
type UserGetter interface {
	Get(ctx context.Context, id string) (user.Identity, error)
}

// Verifier validates access tokens and resolves the holder's identity.
type Verifier struct {
	secret string
	users  UserGetter
}

// NewVerifier constructs a Verifier for the given signing secret.
func NewVerifier(secret string, users UserGetter) *Verifier {
	return &Verifier{secret: secret, users: users}
}

// Authenticate parses and validates the token and returns the holder's identity.
// Any failure (missing, malformed, expired token, unknown user) is returned as an
// error; callers treat every failure as unauthenticated.
func (v *Verifier) Authenticate(ctx context.Context, token string) (user.Identity, error) {
	if token == "" {
		return user.Identity{}, fmt.Errorf("missing access token")
	}

	payload, err := jwt.ParseToken(token, v.secret)
	if err != nil {
		return user.Identity{}, fmt.Errorf("invalid access token: %w", err)
	}

	identity, err := v.users.Get(ctx, payload.UserID)
	if err != nil {
		return user.Identity{}, fmt.Errorf("resolve token holder: %w", err)
	}

	return identity, nil
}
