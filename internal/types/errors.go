package types

import "errors"

// Sentinel errors for the whole service. Repositories and services wrap
// these with context via fmt.Errorf("...: %w", ...); the HTTP boundary
// translates them to status codes in a single place.
var (
	ErrNotFound           = errors.New("requested item not found")
	ErrConflict           = errors.New("item already exists or conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrValidation         = errors.New("validation failed")
)

// Token verification failures. All of them collapse to a 401 for the
// client; the distinction only matters for logs and for callers of
// SubjectOf.
var (
	ErrTokenInvalid     = errors.New("invalid token")
	ErrTokenMalformed   = errors.New("malformed token")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenUnsupported = errors.New("unsupported token algorithm")
)
