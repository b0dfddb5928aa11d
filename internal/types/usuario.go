package types

import (
	"time"

	"github.com/google/uuid"
)

// Usuario is the stored form of a user. PasswordHash is never serialized
// outward.
type Usuario struct {
	ID                uuid.UUID `json:"id"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"`
	Nombre            string    `json:"nombre"`
	Apellidos         *string   `json:"apellidos,omitempty"`
	Activo            bool      `json:"activo"`
	Perfiles          []string  `json:"perfiles"`
	FechaCreacion     time.Time `json:"fechaCreacion"`
	FechaModificacion time.Time `json:"fechaModificacion"`
}

// CreateUsuarioRequest is the POST /users body. Perfiles carries profile
// names; every name must resolve to an existing perfil.
type CreateUsuarioRequest struct {
	Username  string   `json:"username" validate:"required,min=3,max=50"`
	Email     string   `json:"email" validate:"required,email,max=100"`
	Password  string   `json:"password" validate:"required,min=6,max=100"`
	Nombre    string   `json:"nombre" validate:"required,max=100"`
	Apellidos *string  `json:"apellidos,omitempty" validate:"omitempty,max=100"`
	Activo    *bool    `json:"activo,omitempty"`
	Perfiles  []string `json:"perfiles,omitempty"`
}

// UpdateUsuarioRequest is the PUT /users/{id} body. An empty Password
// keeps the current hash. A nil Perfiles leaves the membership set
// untouched; a non-nil one replaces it wholesale.
type UpdateUsuarioRequest struct {
	Username  string    `json:"username" validate:"required,min=3,max=50"`
	Email     string    `json:"email" validate:"required,email,max=100"`
	Password  string    `json:"password,omitempty" validate:"omitempty,min=6,max=100"`
	Nombre    string    `json:"nombre" validate:"required,max=100"`
	Apellidos *string   `json:"apellidos,omitempty" validate:"omitempty,max=100"`
	Activo    *bool     `json:"activo,omitempty"`
	Perfiles  *[]string `json:"perfiles,omitempty"`
}
