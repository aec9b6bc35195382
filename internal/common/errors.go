// Package common defines shared constants and sentinel errors used across
// client and server layers of gophstamp. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrConflict   = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")
	ErrForbidden  = errors.New("forbidden")

	// ErrInvalidArgument marks malformed input such as an empty username or
	// an unparsable e-mail address.
	ErrInvalidArgument = errors.New("invalid argument")

	// Registration and login errors. Authentication failures never say which
	// sub-check failed.
	ErrWeakPassword       = errors.New("password does not meet the policy")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNotVerified        = errors.New("two-factor verification not completed")
	ErrInvalidOTP         = errors.New("invalid or expired one-time code")

	// Auth errors (invalid, malformed or wrong kind of credential token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors. Always reported together with ErrInvalidToken.
	ErrTokenExpired = errors.New("token expired")

	// ErrRateLimited is returned when a client exceeds its request budget.
	ErrRateLimited = errors.New("too many requests")

	// Startup errors.
	ErrKeyMaterialUnavailable = errors.New("signing key material unavailable")
)
