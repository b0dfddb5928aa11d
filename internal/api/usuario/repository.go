package usuario

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

// SortableColumns maps wire-level sort fields to usuarios columns.
var SortableColumns = map[string]string{
	"username":          "username",
	"email":             "email",
	"nombre":            "nombre",
	"fechaCreacion":     "fecha_creacion",
	"fechaModificacion": "fecha_modificacion",
}

const DefaultSortColumn = "fecha_creacion"

var _ UsuarioRepo = (*PostgresUsuarioRepo)(nil)

// UsuarioRepo is the persistence contract for usuarios. The unique
// constraints on username and email are the final authority for
// conflicts; Insert and Update translate constraint violations into
// types.ErrConflict.
type UsuarioRepo interface {
	Insert(ctx context.Context, u *types.Usuario, perfilIDs []uuid.UUID) (*types.Usuario, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.Usuario, error)
	GetByUsername(ctx context.Context, username string) (*types.Usuario, error)
	List(ctx context.Context, page types.PageRequest) (*types.Page[types.Usuario], error)
	Search(ctx context.Context, term string, page types.PageRequest) (*types.Page[types.Usuario], error)
	ListByPerfil(ctx context.Context, perfilNombre string, page types.PageRequest) (*types.Page[types.Usuario], error)
	Update(ctx context.Context, u *types.Usuario, perfilIDs *[]uuid.UUID) (*types.Usuario, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetActivo(ctx context.Context, id uuid.UUID, activo bool) error
	AssignPerfil(ctx context.Context, usuarioID, perfilID uuid.UUID) error
	UnassignPerfil(ctx context.Context, usuarioID, perfilID uuid.UUID) error
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

type PostgresUsuarioRepo struct {
	logger *slog.Logger
	pgpool api.PGXPool
}

func NewPostgresUsuarioRepo(pgpool api.PGXPool, logger *slog.Logger) *PostgresUsuarioRepo {
	return &PostgresUsuarioRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const usuarioSelect = `
    SELECT u.id, u.username, u.email, u.password_hash, u.nombre, u.apellidos, u.activo,
           u.fecha_creacion, u.fecha_modificacion,
           COALESCE(array_remove(array_agg(p.nombre), NULL), '{}') AS perfiles
    FROM usuarios u
    LEFT JOIN usuario_perfiles up ON up.usuario_id = u.id
    LEFT JOIN perfiles p ON p.id = up.perfil_id`

func scanUsuario(row pgx.Row) (*types.Usuario, error) {
	var u types.Usuario
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Nombre, &u.Apellidos,
		&u.Activo, &u.FechaCreacion, &u.FechaModificacion, &u.Perfiles)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// translateConstraint maps a unique violation to the conflicting field.
func translateConstraint(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case "usuarios_username_key":
			return fmt.Errorf("username already exists: %w", types.ErrConflict)
		case "usuarios_email_key":
			return fmt.Errorf("email already exists: %w", types.ErrConflict)
		default:
			return fmt.Errorf("duplicate value: %w", types.ErrConflict)
		}
	}
	return nil
}

func (r *PostgresUsuarioRepo) Insert(ctx context.Context, u *types.Usuario, perfilIDs []uuid.UUID) (*types.Usuario, error) {
	l := r.logger.With(slog.String("method", "Insert"), slog.String("username", u.Username))

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
        INSERT INTO usuarios (username, email, password_hash, nombre, apellidos, activo)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, fecha_creacion, fecha_modificacion`,
		u.Username, u.Email, u.PasswordHash, u.Nombre, u.Apellidos, u.Activo).
		Scan(&u.ID, &u.FechaCreacion, &u.FechaModificacion)
	if err != nil {
		if conflict := translateConstraint(err); conflict != nil {
			l.WarnContext(ctx, "Duplicate usuario on insert", slog.Any("error", err))
			return nil, conflict
		}
		return nil, fmt.Errorf("database error creating usuario: %w", err)
	}

	for _, perfilID := range perfilIDs {
		_, err = tx.Exec(ctx,
			`INSERT INTO usuario_perfiles (usuario_id, perfil_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			u.ID, perfilID)
		if err != nil {
			return nil, fmt.Errorf("database error assigning perfil: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	l.InfoContext(ctx, "Usuario created", slog.String("usuarioID", u.ID.String()))
	return r.GetByID(ctx, u.ID)
}

func (r *PostgresUsuarioRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.Usuario, error) {
	row := r.pgpool.QueryRow(ctx, usuarioSelect+` WHERE u.id = $1 GROUP BY u.id`, id)
	u, err := scanUsuario(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("usuario %s: %w", id, types.ErrNotFound)
		}
		return nil, fmt.Errorf("database error fetching usuario: %w", err)
	}
	return u, nil
}

func (r *PostgresUsuarioRepo) GetByUsername(ctx context.Context, username string) (*types.Usuario, error) {
	row := r.pgpool.QueryRow(ctx, usuarioSelect+` WHERE u.username = $1 GROUP BY u.id`, username)
	u, err := scanUsuario(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("usuario %q: %w", username, types.ErrNotFound)
		}
		return nil, fmt.Errorf("database error fetching usuario: %w", err)
	}
	return u, nil
}

func (r *PostgresUsuarioRepo) queryPage(ctx context.Context, where string, countWhere string, page types.PageRequest, args ...any) (*types.Page[types.Usuario], error) {
	var total int64
	err := r.pgpool.QueryRow(ctx, `SELECT count(*) FROM usuarios u`+countWhere, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("database error counting usuarios: %w", err)
	}

	limitArgs := append(args, page.Size, page.Offset())
	query := fmt.Sprintf("%s%s GROUP BY u.id ORDER BY u.%s %s LIMIT $%d OFFSET $%d",
		usuarioSelect, where, page.SortColumn, page.Direction(), len(args)+1, len(args)+2)

	rows, err := r.pgpool.Query(ctx, query, limitArgs...)
	if err != nil {
		return nil, fmt.Errorf("database error listing usuarios: %w", err)
	}
	defer rows.Close()

	var usuarios []types.Usuario
	for rows.Next() {
		u, err := scanUsuario(rows)
		if err != nil {
			return nil, fmt.Errorf("database error scanning usuario: %w", err)
		}
		usuarios = append(usuarios, *u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("database error iterating usuarios: %w", err)
	}

	return types.NewPage(usuarios, total, page), nil
}

func (r *PostgresUsuarioRepo) List(ctx context.Context, page types.PageRequest) (*types.Page[types.Usuario], error) {
	return r.queryPage(ctx, "", "", page)
}

func (r *PostgresUsuarioRepo) Search(ctx context.Context, term string, page types.PageRequest) (*types.Page[types.Usuario], error) {
	where := ` WHERE u.username ILIKE '%' || $1 || '%'
        OR u.nombre ILIKE '%' || $1 || '%'
        OR COALESCE(u.apellidos, '') ILIKE '%' || $1 || '%'
        OR u.email ILIKE '%' || $1 || '%'`
	return r.queryPage(ctx, where, where, page, term)
}

func (r *PostgresUsuarioRepo) ListByPerfil(ctx context.Context, perfilNombre string, page types.PageRequest) (*types.Page[types.Usuario], error) {
	where := ` WHERE u.id IN (
        SELECT jp.usuario_id FROM usuario_perfiles jp
        JOIN perfiles pp ON pp.id = jp.perfil_id
        WHERE pp.nombre = $1)`
	return r.queryPage(ctx, where, where, page, perfilNombre)
}

// Update writes the full row and, when perfilIDs is non-nil, replaces
// the membership set wholesale inside the same transaction.
func (r *PostgresUsuarioRepo) Update(ctx context.Context, u *types.Usuario, perfilIDs *[]uuid.UUID) (*types.Usuario, error) {
	l := r.logger.With(slog.String("method", "Update"), slog.String("usuarioID", u.ID.String()))

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
        UPDATE usuarios
        SET username = $1, email = $2, password_hash = $3, nombre = $4, apellidos = $5,
            activo = $6, fecha_modificacion = now()
        WHERE id = $7`,
		u.Username, u.Email, u.PasswordHash, u.Nombre, u.Apellidos, u.Activo, u.ID)
	if err != nil {
		if conflict := translateConstraint(err); conflict != nil {
			l.WarnContext(ctx, "Duplicate usuario on update", slog.Any("error", err))
			return nil, conflict
		}
		return nil, fmt.Errorf("database error updating usuario: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("usuario %s: %w", u.ID, types.ErrNotFound)
	}

	if perfilIDs != nil {
		if _, err = tx.Exec(ctx, `DELETE FROM usuario_perfiles WHERE usuario_id = $1`, u.ID); err != nil {
			return nil, fmt.Errorf("database error clearing perfiles: %w", err)
		}
		for _, perfilID := range *perfilIDs {
			_, err = tx.Exec(ctx,
				`INSERT INTO usuario_perfiles (usuario_id, perfil_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				u.ID, perfilID)
			if err != nil {
				return nil, fmt.Errorf("database error assigning perfil: %w", err)
			}
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return r.GetByID(ctx, u.ID)
}

func (r *PostgresUsuarioRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pgpool.Exec(ctx, `DELETE FROM usuarios WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("database error deleting usuario: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("usuario %s: %w", id, types.ErrNotFound)
	}
	r.logger.InfoContext(ctx, "Usuario deleted", slog.String("usuarioID", id.String()))
	return nil
}

func (r *PostgresUsuarioRepo) SetActivo(ctx context.Context, id uuid.UUID, activo bool) error {
	tag, err := r.pgpool.Exec(ctx,
		`UPDATE usuarios SET activo = $1, fecha_modificacion = now() WHERE id = $2`, activo, id)
	if err != nil {
		return fmt.Errorf("database error updating estado: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("usuario %s: %w", id, types.ErrNotFound)
	}
	return nil
}

// AssignPerfil is an idempotent set-add; an already-present membership
// is not an error.
func (r *PostgresUsuarioRepo) AssignPerfil(ctx context.Context, usuarioID, perfilID uuid.UUID) error {
	_, err := r.pgpool.Exec(ctx,
		`INSERT INTO usuario_perfiles (usuario_id, perfil_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		usuarioID, perfilID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			if pgErr.ConstraintName == "usuario_perfiles_perfil_id_fkey" {
				return fmt.Errorf("perfil %s: %w", perfilID, types.ErrNotFound)
			}
			return fmt.Errorf("usuario %s: %w", usuarioID, types.ErrNotFound)
		}
		return fmt.Errorf("database error assigning perfil: %w", err)
	}
	return nil
}

// UnassignPerfil is an idempotent set-remove; existence of both ids is
// checked by the service beforehand.
func (r *PostgresUsuarioRepo) UnassignPerfil(ctx context.Context, usuarioID, perfilID uuid.UUID) error {
	_, err := r.pgpool.Exec(ctx,
		`DELETE FROM usuario_perfiles WHERE usuario_id = $1 AND perfil_id = $2`,
		usuarioID, perfilID)
	if err != nil {
		return fmt.Errorf("database error unassigning perfil: %w", err)
	}
	return nil
}

func (r *PostgresUsuarioRepo) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pgpool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM usuarios WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("database error checking usuario: %w", err)
	}
	return exists, nil
}

func (r *PostgresUsuarioRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.pgpool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM usuarios WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("database error checking username: %w", err)
	}
	return exists, nil
}

func (r *PostgresUsuarioRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pgpool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM usuarios WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("database error checking email: %w", err)
	}
	return exists, nil
}
