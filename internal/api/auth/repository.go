package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gestionusuarios/gestion-usuarios/internal/api"
	"github.com/gestionusuarios/gestion-usuarios/internal/types"
)

// Credentials is the stored identity record used for credential checks
// and for rebuilding the request principal from a token subject.
type Credentials struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	Activo       bool
	Perfiles     []string
}

var _ CredentialStore = (*PostgresCredentialStore)(nil)

// CredentialStore looks up identity records by username.
type CredentialStore interface {
	GetByUsername(ctx context.Context, username string) (*Credentials, error)
}

type PostgresCredentialStore struct {
	logger *slog.Logger
	pgpool api.PGXPool
}

func NewPostgresCredentialStore(pgpool api.PGXPool, logger *slog.Logger) *PostgresCredentialStore {
	return &PostgresCredentialStore{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *PostgresCredentialStore) GetByUsername(ctx context.Context, username string) (*Credentials, error) {
	var c Credentials
	err := r.pgpool.QueryRow(ctx, `
        SELECT u.id, u.username, u.email, u.password_hash, u.activo,
               COALESCE(array_remove(array_agg(p.nombre), NULL), '{}')
        FROM usuarios u
        LEFT JOIN usuario_perfiles up ON up.usuario_id = u.id
        LEFT JOIN perfiles p ON p.id = up.perfil_id
        WHERE u.username = $1
        GROUP BY u.id`,
		username).Scan(&c.ID, &c.Username, &c.Email, &c.PasswordHash, &c.Activo, &c.Perfiles)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %q: %w", username, types.ErrNotFound)
		}
		return nil, fmt.Errorf("credential lookup failed: %w", err)
	}
	return &c, nil
}
