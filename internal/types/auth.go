package types

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigninRequest is the POST /auth/signin body.
type SigninRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// JwtResponse is the signin response: the bearer token plus an identity
// summary for client convenience.
type JwtResponse struct {
	Token       string    `json:"token"`
	Tipo        string    `json:"tipo"`
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Authorities []string  `json:"authorities"`
}

// Claims is the JWT payload. Authorities are derived from perfil
// membership at issue time.
type Claims struct {
	Authorities []string `json:"authorities,omitempty"`
	jwt.RegisteredClaims
}

// Principal is the request-scoped identity attached by the access
// control middleware after token verification.
type Principal struct {
	ID          uuid.UUID
	Username    string
	Authorities []string
}
