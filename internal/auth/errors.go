package auth

import "errors"

var (
	// ErrTokenInvalid covers malformed tokens, unexpected algorithms and bad signatures.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired is returned when the exp claim is in the past.
	ErrTokenExpired = errors.New("token expired")
	// ErrIdentityNotFound is returned when a username resolves to no account.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrInvalidPassword is returned by PasswordHasher.Compare on mismatch.
	ErrInvalidPassword = errors.New("password mismatch")
	// ErrUnauthenticated wraps every rejection made by the Gate.
	ErrUnauthenticated = errors.New("authentication failed")
)
