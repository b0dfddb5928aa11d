package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gestionusuarios/gestion-usuarios/config"
	"github.com/gestionusuarios/gestion-usuarios/internal/types"
)

// TokenService issues and verifies signed bearer tokens. Tokens are
// stateless: validity is determined purely by signature and expiry, so
// revocation before natural expiry is not possible.
type TokenService struct {
	secretKey []byte
	ttl       time.Duration
	issuer    string
	logger    *slog.Logger
}

func NewTokenService(cfg config.JWTConfig, logger *slog.Logger) *TokenService {
	if len(cfg.SecretKey) == 0 {
		panic("JWT secret key cannot be empty")
	}
	return &TokenService{
		secretKey: []byte(cfg.SecretKey),
		ttl:       cfg.TokenTTL,
		issuer:    cfg.Issuer,
		logger:    logger,
	}
}

// Issue signs a token for the subject, expiring at issuedAt plus the
// configured lifetime.
func (s *TokenService) Issue(subject string, authorities []string, issuedAt time.Time) (string, error) {
	claims := types.Claims{
		Authorities: authorities,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// SubjectOf verifies signature and expiry and returns the subject. On
// failure it returns an error wrapping one of the types.ErrToken*
// sentinels so callers can tell why verification failed.
func (s *TokenService) SubjectOf(tokenString string) (string, error) {
	claims := &types.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v: %w", token.Header["alg"], types.ErrTokenUnsupported)
		}
		return s.secretKey, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, types.ErrTokenUnsupported):
			return "", fmt.Errorf("%w", types.ErrTokenUnsupported)
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", fmt.Errorf("%w", types.ErrTokenExpired)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return "", fmt.Errorf("%w", types.ErrTokenMalformed)
		default:
			return "", fmt.Errorf("%w: %w", types.ErrTokenInvalid, err)
		}
	}
	if !token.Valid || claims.Subject == "" {
		return "", types.ErrTokenInvalid
	}
	return claims.Subject, nil
}

// Validate reports whether the token would verify. Failures are logged
// and collapse to false; use SubjectOf to distinguish the reason.
func (s *TokenService) Validate(tokenString string) bool {
	_, err := s.SubjectOf(tokenString)
	if err != nil {
		s.logger.Warn("Token validation failed", slog.Any("error", err))
		return false
	}
	return true
}
