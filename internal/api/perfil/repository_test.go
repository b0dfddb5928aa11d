package perfil

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

func setupPerfilRepoTest(t *testing.T) (*PostgresPerfilRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPostgresPerfilRepo(mockPool, logger), mockPool
}

func TestPostgresPerfilRepo_Insert(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	now := time.Now()

	t.Run("success", func(t *testing.T) {
		repo, mockPool := setupPerfilRepoTest(t)

		mockPool.ExpectQuery("INSERT INTO perfiles").
			WithArgs("admin", (*string)(nil)).
			WillReturnRows(pgxmock.NewRows([]string{"id", "nombre", "descripcion", "fecha_creacion", "fecha_modificacion"}).
				AddRow(id, "admin", (*string)(nil), now, now))

		p, err := repo.Insert(ctx, "admin", nil)

		require.NoError(t, err)
		assert.Equal(t, id, p.ID)
		assert.Equal(t, "admin", p.Nombre)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("duplicate nombre", func(t *testing.T) {
		repo, mockPool := setupPerfilRepoTest(t)

		mockPool.ExpectQuery("INSERT INTO perfiles").
			WithArgs("admin", (*string)(nil)).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "perfiles_nombre_key"})

		p, err := repo.Insert(ctx, "admin", nil)

		assert.Nil(t, p)
		assert.ErrorIs(t, err, types.ErrConflict)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPostgresPerfilRepo_GetIDByNombre(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("success", func(t *testing.T) {
		repo, mockPool := setupPerfilRepoTest(t)

		mockPool.ExpectQuery("SELECT id FROM perfiles").
			WithArgs("admin").
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id))

		got, err := repo.GetIDByNombre(ctx, "admin")

		require.NoError(t, err)
		assert.Equal(t, id, got)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mockPool := setupPerfilRepoTest(t)

		mockPool.ExpectQuery("SELECT id FROM perfiles").
			WithArgs("ghost").
			WillReturnRows(pgxmock.NewRows([]string{"id"}))

		got, err := repo.GetIDByNombre(ctx, "ghost")

		assert.Equal(t, uuid.Nil, got)
		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPostgresPerfilRepo_Delete(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("success", func(t *testing.T) {
		repo, mockPool := setupPerfilRepoTest(t)

		mockPool.ExpectExec("DELETE FROM perfiles").
			WithArgs(id).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		assert.NoError(t, repo.Delete(ctx, id))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("still referenced", func(t *testing.T) {
		repo, mockPool := setupPerfilRepoTest(t)

		mockPool.ExpectExec("DELETE FROM perfiles").
			WithArgs(id).
			WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "usuario_perfiles_perfil_id_fkey"})

		err := repo.Delete(ctx, id)

		assert.ErrorIs(t, err, types.ErrConflict)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mockPool := setupPerfilRepoTest(t)

		mockPool.ExpectExec("DELETE FROM perfiles").
			WithArgs(id).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		assert.ErrorIs(t, repo.Delete(ctx, id), types.ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPostgresPerfilRepo_CountUsuarios(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	repo, mockPool := setupPerfilRepoTest(t)

	mockPool.ExpectQuery("SELECT count").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))

	count, err := repo.CountUsuarios(ctx, id)

	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
