package usuario

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestionusuarios/gestion-usuarios/internal/types"
)

func setupUsuarioRepoTest(t *testing.T) (*PostgresUsuarioRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPostgresUsuarioRepo(mockPool, logger), mockPool
}

func usuarioRows(id uuid.UUID) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows([]string{
		"id", "username", "email", "password_hash", "nombre", "apellidos",
		"activo", "fecha_creacion", "fecha_modificacion", "perfiles",
	}).AddRow(id, "jdoe", "jdoe@example.com", "$2a$10$hash", "Juan", (*string)(nil),
		true, now, now, []string{"admin"})
}

func TestPostgresUsuarioRepo_GetByID(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("success", func(t *testing.T) {
		repo, mockPool := setupUsuarioRepoTest(t)

		mockPool.ExpectQuery("SELECT u.id, u.username").
			WithArgs(id).
			WillReturnRows(usuarioRows(id))

		u, err := repo.GetByID(ctx, id)

		require.NoError(t, err)
		assert.Equal(t, id, u.ID)
		assert.Equal(t, "jdoe", u.Username)
		assert.Equal(t, []string{"admin"}, u.Perfiles)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mockPool := setupUsuarioRepoTest(t)

		mockPool.ExpectQuery("SELECT u.id, u.username").
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows([]string{
				"id", "username", "email", "password_hash", "nombre", "apellidos",
				"activo", "fecha_creacion", "fecha_modificacion", "perfiles",
			}))

		u, err := repo.GetByID(ctx, id)

		assert.Nil(t, u)
		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPostgresUsuarioRepo_Insert(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	perfilID := uuid.New()
	now := time.Now()

	u := &types.Usuario{
		Username:     "jdoe",
		Email:        "jdoe@example.com",
		PasswordHash: "$2a$10$hash",
		Nombre:       "Juan",
		Activo:       true,
	}

	t.Run("success", func(t *testing.T) {
		repo, mockPool := setupUsuarioRepoTest(t)

		mockPool.ExpectBegin()
		mockPool.ExpectQuery("INSERT INTO usuarios").
			WithArgs("jdoe", "jdoe@example.com", "$2a$10$hash", "Juan", (*string)(nil), true).
			WillReturnRows(pgxmock.NewRows([]string{"id", "fecha_creacion", "fecha_modificacion"}).
				AddRow(id, now, now))
		mockPool.ExpectExec("INSERT INTO usuario_perfiles").
			WithArgs(id, perfilID).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCommit()
		mockPool.ExpectQuery("SELECT u.id, u.username").
			WithArgs(id).
			WillReturnRows(usuarioRows(id))

		created, err := repo.Insert(ctx, u, []uuid.UUID{perfilID})

		require.NoError(t, err)
		assert.Equal(t, id, created.ID)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("duplicate username", func(t *testing.T) {
		repo, mockPool := setupUsuarioRepoTest(t)

		mockPool.ExpectBegin()
		mockPool.ExpectQuery("INSERT INTO usuarios").
			WithArgs("jdoe", "jdoe@example.com", "$2a$10$hash", "Juan", (*string)(nil), true).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "usuarios_username_key"})
		mockPool.ExpectRollback()

		created, err := repo.Insert(ctx, u, nil)

		assert.Nil(t, created)
		assert.ErrorIs(t, err, types.ErrConflict)
		assert.Contains(t, err.Error(), "username")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPostgresUsuarioRepo_Delete(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("success", func(t *testing.T) {
		repo, mockPool := setupUsuarioRepoTest(t)

		mockPool.ExpectExec("DELETE FROM usuarios").
			WithArgs(id).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		assert.NoError(t, repo.Delete(ctx, id))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mockPool := setupUsuarioRepoTest(t)

		mockPool.ExpectExec("DELETE FROM usuarios").
			WithArgs(id).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		assert.ErrorIs(t, repo.Delete(ctx, id), types.ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPostgresUsuarioRepo_AssignPerfil(t *testing.T) {
	ctx := context.Background()
	usuarioID := uuid.New()
	perfilID := uuid.New()

	t.Run("missing perfil", func(t *testing.T) {
		repo, mockPool := setupUsuarioRepoTest(t)

		mockPool.ExpectExec("INSERT INTO usuario_perfiles").
			WithArgs(usuarioID, perfilID).
			WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "usuario_perfiles_perfil_id_fkey"})

		err := repo.AssignPerfil(ctx, usuarioID, perfilID)

		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.Contains(t, err.Error(), "perfil")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("missing usuario", func(t *testing.T) {
		repo, mockPool := setupUsuarioRepoTest(t)

		mockPool.ExpectExec("INSERT INTO usuario_perfiles").
			WithArgs(usuarioID, perfilID).
			WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "usuario_perfiles_usuario_id_fkey"})

		err := repo.AssignPerfil(ctx, usuarioID, perfilID)

		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.Contains(t, err.Error(), "usuario")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("already assigned is not an error", func(t *testing.T) {
		repo, mockPool := setupUsuarioRepoTest(t)

		mockPool.ExpectExec("INSERT INTO usuario_perfiles").
			WithArgs(usuarioID, perfilID).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))

		assert.NoError(t, repo.AssignPerfil(ctx, usuarioID, perfilID))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPostgresUsuarioRepo_ExistsByUsername(t *testing.T) {
	ctx := context.Background()
	repo, mockPool := setupUsuarioRepoTest(t)

	mockPool.ExpectQuery("SELECT EXISTS").
		WithArgs("jdoe").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByUsername(ctx, "jdoe")

	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
