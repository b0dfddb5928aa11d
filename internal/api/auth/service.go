package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gestionusuarios/gestion-usuarios/internal/types"
)

var _ AuthService = (*AuthServiceImpl)(nil)

// AuthService orchestrates credential verification and token issuance.
type AuthService interface {
	Authenticate(ctx context.Context, username, password string) (*types.JwtResponse, error)
	IdentityOf(ctx context.Context, subject string) (*types.Principal, error)
}

type AuthServiceImpl struct {
	store  CredentialStore
	tokens *TokenService
	logger *slog.Logger
}

func NewAuthService(store CredentialStore, tokens *TokenService, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		store:  store,
		tokens: tokens,
		logger: logger,
	}
}

// Authenticate verifies the credentials and issues a bearer token. Every
// failure collapses to ErrInvalidCredentials so the response does not
// reveal whether the username exists.
func (s *AuthServiceImpl) Authenticate(ctx context.Context, username, password string) (*types.JwtResponse, error) {
	l := s.logger.With(slog.String("method", "Authenticate"), slog.String("username", username))

	creds, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			l.WarnContext(ctx, "Signin attempt for unknown username")
			return nil, types.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("credential lookup: %w", err)
	}

	if !creds.Activo {
		l.WarnContext(ctx, "Signin attempt for inactive user")
		return nil, types.ErrInvalidCredentials
	}

	if !VerifyPassword(password, creds.PasswordHash) {
		l.WarnContext(ctx, "Signin attempt with wrong password")
		return nil, types.ErrInvalidCredentials
	}

	authorities := Authorities(creds.Perfiles)
	token, err := s.tokens.Issue(creds.Username, authorities, time.Now())
	if err != nil {
		return nil, fmt.Errorf("token issuance: %w", err)
	}

	l.InfoContext(ctx, "User authenticated", slog.String("userID", creds.ID.String()))
	return &types.JwtResponse{
		Token:       token,
		Tipo:        "Bearer",
		ID:          creds.ID,
		Username:    creds.Username,
		Email:       creds.Email,
		Authorities: authorities,
	}, nil
}

// IdentityOf rebuilds the request principal for a verified token
// subject.
func (s *AuthServiceImpl) IdentityOf(ctx context.Context, subject string) (*types.Principal, error) {
	creds, err := s.store.GetByUsername(ctx, subject)
	if err != nil {
		return nil, err
	}
	return &types.Principal{
		ID:          creds.ID,
		Username:    creds.Username,
		Authorities: Authorities(creds.Perfiles),
	}, nil
}

// Authorities derives the authority set from perfil membership, one
// authority per perfil: "ROLE_" + upper-cased name.
func Authorities(perfiles []string) []string {
	authorities := make([]string, 0, len(perfiles))
	for _, nombre := range perfiles {
		authorities = append(authorities, "ROLE_"+strings.ToUpper(nombre))
	}
	return authorities
}
