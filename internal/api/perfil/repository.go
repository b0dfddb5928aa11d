package perfil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gestionusuarios/gestion-usuarios/internal/api"
	"github.com/gestionusuarios/gestion-usuarios/internal/types"
)

// SortableColumns maps wire-level sort fields to perfiles columns.
var SortableColumns = map[string]string{
	"nombre":            "nombre",
	"fechaCreacion":     "fecha_creacion",
	"fechaModificacion": "fecha_modificacion",
}

const DefaultSortColumn = "fecha_creacion"

var _ PerfilRepo = (*PostgresPerfilRepo)(nil)

type PerfilRepo interface {
	Insert(ctx context.Context, nombre string, descripcion *string) (*types.Perfil, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.Perfil, error)
	GetByNombre(ctx context.Context, nombre string) (*types.Perfil, error)
	GetIDByNombre(ctx context.Context, nombre string) (uuid.UUID, error)
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
	ExistsByNombre(ctx context.Context, nombre string) (bool, error)
	List(ctx context.Context, page types.PageRequest) (*types.Page[types.Perfil], error)
	Search(ctx context.Context, term string, page types.PageRequest) (*types.Page[types.Perfil], error)
	Update(ctx context.Context, p *types.Perfil) (*types.Perfil, error)
	CountUsuarios(ctx context.Context, id uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type PostgresPerfilRepo struct {
	logger *slog.Logger
	pgpool api.PGXPool
}

func NewPostgresPerfilRepo(pgpool api.PGXPool, logger *slog.Logger) *PostgresPerfilRepo {
	return &PostgresPerfilRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *PostgresPerfilRepo) Insert(ctx context.Context, nombre string, descripcion *string) (*types.Perfil, error) {
	l := r.logger.With(slog.String("method", "Insert"), slog.String("nombre", nombre))

	var p types.Perfil
	err := r.pgpool.QueryRow(ctx, `
        INSERT INTO perfiles (nombre, descripcion)
        VALUES ($1, $2)
        RETURNING id, nombre, descripcion, fecha_creacion, fecha_modificacion`,
		nombre, descripcion).
		Scan(&p.ID, &p.Nombre, &p.Descripcion, &p.FechaCreacion, &p.FechaModificacion)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			l.WarnContext(ctx, "Duplicate perfil nombre", slog.Any("error", err))
			return nil, fmt.Errorf("perfil %q already exists: %w", nombre, types.ErrConflict)
		}
		return nil, fmt.Errorf("database error creating perfil: %w", err)
	}

	l.InfoContext(ctx, "Perfil created", slog.String("perfilID", p.ID.String()))
	return &p, nil
}

func (r *PostgresPerfilRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.Perfil, error) {
	var p types.Perfil
	err := r.pgpool.QueryRow(ctx,
		`SELECT id, nombre, descripcion, fecha_creacion, fecha_modificacion FROM perfiles WHERE id = $1`,
		id).Scan(&p.ID, &p.Nombre, &p.Descripcion, &p.FechaCreacion, &p.FechaModificacion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("perfil %s: %w", id, types.ErrNotFound)
		}
		return nil, fmt.Errorf("database error fetching perfil: %w", err)
	}
	return &p, nil
}

func (r *PostgresPerfilRepo) GetByNombre(ctx context.Context, nombre string) (*types.Perfil, error) {
	var p types.Perfil
	err := r.pgpool.QueryRow(ctx,
		`SELECT id, nombre, descripcion, fecha_creacion, fecha_modificacion FROM perfiles WHERE nombre = $1`,
		nombre).Scan(&p.ID, &p.Nombre, &p.Descripcion, &p.FechaCreacion, &p.FechaModificacion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("perfil %q: %w", nombre, types.ErrNotFound)
		}
		return nil, fmt.Errorf("database error fetching perfil: %w", err)
	}
	return &p, nil
}

func (r *PostgresPerfilRepo) GetIDByNombre(ctx context.Context, nombre string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pgpool.QueryRow(ctx, `SELECT id FROM perfiles WHERE nombre = $1`, nombre).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("perfil %q: %w", nombre, types.ErrNotFound)
		}
		return uuid.Nil, fmt.Errorf("database error fetching perfil: %w", err)
	}
	return id, nil
}

func (r *PostgresPerfilRepo) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pgpool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM perfiles WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("database error checking perfil: %w", err)
	}
	return exists, nil
}

func (r *PostgresPerfilRepo) ExistsByNombre(ctx context.Context, nombre string) (bool, error) {
	var exists bool
	err := r.pgpool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM perfiles WHERE nombre = $1)`, nombre).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("database error checking perfil nombre: %w", err)
	}
	return exists, nil
}

func (r *PostgresPerfilRepo) queryPage(ctx context.Context, where string, page types.PageRequest, args ...any) (*types.Page[types.Perfil], error) {
	var total int64
	err := r.pgpool.QueryRow(ctx, `SELECT count(*) FROM perfiles`+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("database error counting perfiles: %w", err)
	}

	limitArgs := append(args, page.Size, page.Offset())
	query := fmt.Sprintf(
		"SELECT id, nombre, descripcion, fecha_creacion, fecha_modificacion FROM perfiles%s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		where, page.SortColumn, page.Direction(), len(args)+1, len(args)+2)

	rows, err := r.pgpool.Query(ctx, query, limitArgs...)
	if err != nil {
		return nil, fmt.Errorf("database error listing perfiles: %w", err)
	}
	defer rows.Close()

	var perfiles []types.Perfil
	for rows.Next() {
		var p types.Perfil
		if err = rows.Scan(&p.ID, &p.Nombre, &p.Descripcion, &p.FechaCreacion, &p.FechaModificacion); err != nil {
			return nil, fmt.Errorf("database error scanning perfil: %w", err)
		}
		perfiles = append(perfiles, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating perfiles: %w", err)
	}

	return types.NewPage(perfiles, total, page), nil
}

func (r *PostgresPerfilRepo) List(ctx context.Context, page types.PageRequest) (*types.Page[types.Perfil], error) {
	return r.queryPage(ctx, "", page)
}

func (r *PostgresPerfilRepo) Search(ctx context.Context, term string, page types.PageRequest) (*types.Page[types.Perfil], error) {
	where := ` WHERE nombre ILIKE '%' || $1 || '%' OR COALESCE(descripcion, '') ILIKE '%' || $1 || '%'`
	return r.queryPage(ctx, where, page, term)
}

func (r *PostgresPerfilRepo) Update(ctx context.Context, p *types.Perfil) (*types.Perfil, error) {
	var updated types.Perfil
	err := r.pgpool.QueryRow(ctx, `
        UPDATE perfiles
        SET nombre = $1, descripcion = $2, fecha_modificacion = now()
        WHERE id = $3
        RETURNING id, nombre, descripcion, fecha_creacion, fecha_modificacion`,
		p.Nombre, p.Descripcion, p.ID).
		Scan(&updated.ID, &updated.Nombre, &updated.Descripcion, &updated.FechaCreacion, &updated.FechaModificacion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("perfil %s: %w", p.ID, types.ErrNotFound)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("perfil %q already exists: %w", p.Nombre, types.ErrConflict)
		}
		return nil, fmt.Errorf("database error updating perfil: %w", err)
	}
	return &updated, nil
}

func (r *PostgresPerfilRepo) CountUsuarios(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.pgpool.QueryRow(ctx,
		`SELECT count(*) FROM usuario_perfiles WHERE perfil_id = $1`, id).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("database error counting perfil usuarios: %w", err)
	}
	return count, nil
}

// Delete removes the perfil. The RESTRICT foreign key is the final
// guard against deleting a perfil that still has members; a violation
// surfaces as ErrConflict.
func (r *PostgresPerfilRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pgpool.Exec(ctx, `DELETE FROM perfiles WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return fmt.Errorf("perfil has associated usuarios: %w", types.ErrConflict)
		}
		return fmt.Errorf("database error deleting perfil: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("perfil %s: %w", id, types.ErrNotFound)
	}
	r.logger.InfoContext(ctx, "Perfil deleted", slog.String("perfilID", id.String()))
	return nil
}
