package perfil

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/gestionusuarios/gestion-usuarios/internal/types"
)

var _ PerfilService = (*PerfilServiceImpl)(nil)

type PerfilService interface {
	Create(ctx context.Context, req types.PerfilRequest) (*types.Perfil, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.Perfil, error)
	GetByNombre(ctx context.Context, nombre string) (*types.Perfil, error)
	List(ctx context.Context, page types.PageRequest) (*types.Page[types.Perfil], error)
	Search(ctx context.Context, term string, page types.PageRequest) (*types.Page[types.Perfil], error)
	Update(ctx context.Context, id uuid.UUID, req types.PerfilRequest) (*types.Perfil, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type PerfilServiceImpl struct {
	repo   PerfilRepo
	logger *slog.Logger
}

func NewPerfilService(repo PerfilRepo, logger *slog.Logger) *PerfilServiceImpl {
	return &PerfilServiceImpl{
		repo:   repo,
		logger: logger,
	}
}

func (s *PerfilServiceImpl) Create(ctx context.Context, req types.PerfilRequest) (*types.Perfil, error) {
	if taken, err := s.repo.ExistsByNombre(ctx, req.Nombre); err != nil {
		return nil, err
	} else if taken {
		return nil, fmt.Errorf("perfil %q already exists: %w", req.Nombre, types.ErrConflict)
	}
	return s.repo.Insert(ctx, req.Nombre, req.Descripcion)
}

func (s *PerfilServiceImpl) GetByID(ctx context.Context, id uuid.UUID) (*types.Perfil, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *PerfilServiceImpl) GetByNombre(ctx context.Context, nombre string) (*types.Perfil, error) {
	return s.repo.GetByNombre(ctx, nombre)
}

func (s *PerfilServiceImpl) List(ctx context.Context, page types.PageRequest) (*types.Page[types.Perfil], error) {
	return s.repo.List(ctx, page)
}

func (s *PerfilServiceImpl) Search(ctx context.Context, term string, page types.PageRequest) (*types.Page[types.Perfil], error) {
	return s.repo.Search(ctx, term, page)
}

func (s *PerfilServiceImpl) Update(ctx context.Context, id uuid.UUID, req types.PerfilRequest) (*types.Perfil, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Nombre != current.Nombre {
		if taken, err := s.repo.ExistsByNombre(ctx, req.Nombre); err != nil {
			return nil, err
		} else if taken {
			return nil, fmt.Errorf("perfil %q already exists: %w", req.Nombre, types.ErrConflict)
		}
	}

	current.Nombre = req.Nombre
	current.Descripcion = req.Descripcion
	return s.repo.Update(ctx, current)
}

// Delete refuses to remove a perfil that still has usuarios. The count
// pre-check gives the precise message; the foreign key backs it up
// under concurrency.
func (s *PerfilServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	l := s.logger.With(slog.String("method", "Delete"), slog.String("perfilID", id.String()))

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}

	count, err := s.repo.CountUsuarios(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		l.WarnContext(ctx, "Refusing to delete perfil with members", slog.Int64("usuarios", count))
		return fmt.Errorf("perfil has %d associated usuarios: %w", count, types.ErrConflict)
	}

	return s.repo.Delete(ctx, id)
}
