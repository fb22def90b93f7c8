package domain

import "errors"

// Authentication and registration.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrRoleNotConfigured  = errors.New("role not configured")
	ErrUserNotFound       = errors.New("user not found")
	ErrLoginThrottled     = errors.New("too many failed login attempts")
)

// Tokens.
var (
	ErrTokenMalformed         = errors.New("token malformed or unsigned")
	ErrTokenSubjectNotNumeric = errors.New("token subject is not numeric")
	ErrTokenExpired           = errors.New("token expired")
	ErrRefreshTokenNotFound   = errors.New("refresh token not found")
	ErrRefreshTokenExists     = errors.New("refresh token already exists for user")
)

// Authorization.
var (
	ErrUnauthenticated     = errors.New("authentication required")
	ErrAuthorizationDenied = errors.New("access forbidden")
)

var ErrTodoNotFound = errors.New("todo not found")
