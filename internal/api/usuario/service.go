package usuario

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/gestionusuarios/gestion-usuarios/internal/api/auth"
	"github.com/gestionusuarios/gestion-usuarios/internal/types"
)

// PerfilStore is the slice of the perfil repository this service needs
// to resolve profile references. Implemented by perfil.PostgresPerfilRepo.
type PerfilStore interface {
	GetIDByNombre(ctx context.Context, nombre string) (uuid.UUID, error)
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
}

var _ UsuarioService = (*UsuarioServiceImpl)(nil)

type UsuarioService interface {
	Create(ctx context.Context, req types.CreateUsuarioRequest) (*types.Usuario, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.Usuario, error)
	GetByUsername(ctx context.Context, username string) (*types.Usuario, error)
	List(ctx context.Context, page types.PageRequest) (*types.Page[types.Usuario], error)
	Search(ctx context.Context, term string, page types.PageRequest) (*types.Page[types.Usuario], error)
	ListByPerfil(ctx context.Context, perfilNombre string, page types.PageRequest) (*types.Page[types.Usuario], error)
	Update(ctx context.Context, id uuid.UUID, req types.UpdateUsuarioRequest) (*types.Usuario, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetActivo(ctx context.Context, id uuid.UUID, activo bool) error
	AssignPerfil(ctx context.Context, usuarioID, perfilID uuid.UUID) error
	UnassignPerfil(ctx context.Context, usuarioID, perfilID uuid.UUID) error
}

type UsuarioServiceImpl struct {
	repo     UsuarioRepo
	perfiles PerfilStore
	logger   *slog.Logger
}

func NewUsuarioService(repo UsuarioRepo, perfiles PerfilStore, logger *slog.Logger) *UsuarioServiceImpl {
	return &UsuarioServiceImpl{
		repo:     repo,
		perfiles: perfiles,
		logger:   logger,
	}
}

// resolvePerfiles maps profile names to ids, failing with ErrNotFound
// on the first unknown name.
func (s *UsuarioServiceImpl) resolvePerfiles(ctx context.Context, nombres []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(nombres))
	for _, nombre := range nombres {
		id, err := s.perfiles.GetIDByNombre(ctx, nombre)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Create registers a new usuario. The existence pre-checks give precise
// conflict messages; the store's unique constraints remain the final
// authority under concurrency and are translated by the repository.
func (s *UsuarioServiceImpl) Create(ctx context.Context, req types.CreateUsuarioRequest) (*types.Usuario, error) {
	l := s.logger.With(slog.String("method", "Create"), slog.String("username", req.Username))

	if taken, err := s.repo.ExistsByUsername(ctx, req.Username); err != nil {
		return nil, err
	} else if taken {
		return nil, fmt.Errorf("username %q already exists: %w", req.Username, types.ErrConflict)
	}
	if taken, err := s.repo.ExistsByEmail(ctx, req.Email); err != nil {
		return nil, err
	} else if taken {
		return nil, fmt.Errorf("email %q already exists: %w", req.Email, types.ErrConflict)
	}

	perfilIDs, err := s.resolvePerfiles(ctx, req.Perfiles)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	activo := true
	if req.Activo != nil {
		activo = *req.Activo
	}

	u := &types.Usuario{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Nombre:       req.Nombre,
		Apellidos:    req.Apellidos,
		Activo:       activo,
	}

	created, err := s.repo.Insert(ctx, u, perfilIDs)
	if err != nil {
		return nil, err
	}
	l.InfoContext(ctx, "Usuario registered", slog.String("usuarioID", created.ID.String()))
	return created, nil
}

func (s *UsuarioServiceImpl) GetByID(ctx context.Context, id uuid.UUID) (*types.Usuario, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UsuarioServiceImpl) GetByUsername(ctx context.Context, username string) (*types.Usuario, error) {
	return s.repo.GetByUsername(ctx, username)
}

func (s *UsuarioServiceImpl) List(ctx context.Context, page types.PageRequest) (*types.Page[types.Usuario], error) {
	return s.repo.List(ctx, page)
}

func (s *UsuarioServiceImpl) Search(ctx context.Context, term string, page types.PageRequest) (*types.Page[types.Usuario], error) {
	return s.repo.Search(ctx, term, page)
}

func (s *UsuarioServiceImpl) ListByPerfil(ctx context.Context, perfilNombre string, page types.PageRequest) (*types.Page[types.Usuario], error) {
	return s.repo.ListByPerfil(ctx, perfilNombre, page)
}

// Update replaces the usuario's fields. An empty password keeps the
// current hash; a nil Perfiles leaves the membership set untouched, a
// non-nil one replaces it wholesale.
func (s *UsuarioServiceImpl) Update(ctx context.Context, id uuid.UUID, req types.UpdateUsuarioRequest) (*types.Usuario, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Username != current.Username {
		if taken, err := s.repo.ExistsByUsername(ctx, req.Username); err != nil {
			return nil, err
		} else if taken {
			return nil, fmt.Errorf("username %q already exists: %w", req.Username, types.ErrConflict)
		}
	}
	if req.Email != current.Email {
		if taken, err := s.repo.ExistsByEmail(ctx, req.Email); err != nil {
			return nil, err
		} else if taken {
			return nil, fmt.Errorf("email %q already exists: %w", req.Email, types.ErrConflict)
		}
	}

	hash := current.PasswordHash
	if req.Password != "" {
		if hash, err = auth.HashPassword(req.Password); err != nil {
			return nil, err
		}
	}

	var perfilIDs *[]uuid.UUID
	if req.Perfiles != nil {
		ids, err := s.resolvePerfiles(ctx, *req.Perfiles)
		if err != nil {
			return nil, err
		}
		perfilIDs = &ids
	}

	activo := current.Activo
	if req.Activo != nil {
		activo = *req.Activo
	}

	u := &types.Usuario{
		ID:           id,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Nombre:       req.Nombre,
		Apellidos:    req.Apellidos,
		Activo:       activo,
	}

	return s.repo.Update(ctx, u, perfilIDs)
}

// Delete is an unconditional hard delete; memberships go with the row.
func (s *UsuarioServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// SetActivo toggles the active flag. Already-issued tokens stay valid
// until natural expiry.
func (s *UsuarioServiceImpl) SetActivo(ctx context.Context, id uuid.UUID, activo bool) error {
	return s.repo.SetActivo(ctx, id, activo)
}

func (s *UsuarioServiceImpl) AssignPerfil(ctx context.Context, usuarioID, perfilID uuid.UUID) error {
	return s.repo.AssignPerfil(ctx, usuarioID, perfilID)
}

// UnassignPerfil resolves both ids before the idempotent set-remove so
// a missing usuario or perfil still reports NotFound.
func (s *UsuarioServiceImpl) UnassignPerfil(ctx context.Context, usuarioID, perfilID uuid.UUID) error {
	if exists, err := s.repo.ExistsByID(ctx, usuarioID); err != nil {
		return err
	} else if !exists {
		return fmt.Errorf("usuario %s: %w", usuarioID, types.ErrNotFound)
	}
	if exists, err := s.perfiles.ExistsByID(ctx, perfilID); err != nil {
		return err
	} else if !exists {
		return fmt.Errorf("perfil %s: %w", perfilID, types.ErrNotFound)
	}
	return s.repo.UnassignPerfil(ctx, usuarioID, perfilID)
}
