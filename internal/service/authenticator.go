package service

import (
	"context"
	"errors"
	"fmt"

	"tagmark/internal/domain"
)

// Authenticator resolves a session token to the user it was issued for.
type Authenticator struct {
	tokens *TokenService
	users  UserService
}

func NewAuthenticator(tokens *TokenService, users UserService) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// Authenticate returns the token's user, or ErrConfiguration when no token
// service is wired, or an error wrapping ErrUnauthenticated. An empty token
// stands for a missing cookie.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if a.tokens == nil {
		return nil, ErrConfiguration
	}
	if token == "" {
		return nil, fmt.Errorf("%w: missing session token", ErrUnauthenticated)
	}

	userID, err := a.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	user, err := a.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("%w: user %d no longer exists", ErrUnauthenticated, userID)
		}
		return nil, err
	}
	return user, nil
}
