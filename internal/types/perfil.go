package types

import (
	"time"

	"github.com/google/uuid"
)

// Perfil is a named role. Nombre is globally unique.
type Perfil struct {
	ID                uuid.UUID `json:"id"`
	Nombre            string    `json:"nombre"`
	Descripcion       *string   `json:"descripcion,omitempty"`
	FechaCreacion     time.Time `json:"fechaCreacion"`
	FechaModificacion time.Time `json:"fechaModificacion"`
}

// PerfilRequest is the create/update body for perfiles.
type PerfilRequest struct {
	Nombre      string  `json:"nombre" validate:"required,min=2,max=50"`
	Descripcion *string `json:"descripcion,omitempty" validate:"omitempty,max=255"`
}
