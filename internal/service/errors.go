package service

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration indicates the session signing secret was never configured.
	ErrConfiguration = errors.New("session signing secret is not configured")
	// ErrUnauthenticated covers a missing, invalid or expired session, or an unknown user.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned by login when no account uses the email.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserAlreadyExists is returned when attempting to sign up with an existing email.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrDuplicatePost is returned when the user already bookmarked the external post.
	ErrDuplicatePost = errors.New("post already bookmarked")
	// ErrPostNotFound is returned by update and delete for unknown or foreign posts.
	ErrPostNotFound = errors.New("post not found")
	// ErrInvalidPost is returned when a post cannot be shown.
	ErrInvalidPost = errors.New("invalid post")
)

// ValidationError reports a malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError and returns it.
func IsValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
