package usuario

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gestionusuarios/gestion-usuarios/internal/api"
	"github.com/gestionusuarios/gestion-usuarios/internal/types"
)

type UsuarioHandler struct {
	service UsuarioService
	logger  *slog.Logger
}

func NewUsuarioHandler(service UsuarioService, logger *slog.Logger) *UsuarioHandler {
	return &UsuarioHandler{
		service: service,
		logger:  logger,
	}
}

func parseID(r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	return id, err == nil
}

// Create godoc
// @Summary      Crear nuevo usuario
// @Description  Creates a user; every referenced perfil name must exist.
// @Tags         Usuarios
// @Accept       json
// @Produce      json
// @Param        usuario body types.CreateUsuarioRequest true "Usuario"
// @Success      201 {object} types.Usuario "Created"
// @Failure      400 {object} api.ErrorEnvelope "Validation failed"
// @Failure      404 {object} api.ErrorEnvelope "Perfil not found"
// @Failure      409 {object} api.ErrorEnvelope "Username or email already exists"
// @Security     BearerAuth
// @Router       /users [post]
func (h *UsuarioHandler) Create(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "Create"))

	var req types.CreateUsuarioRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors := api.ValidateStruct(&req); fieldErrors != nil {
		api.ValidationErrorResponse(w, r, fieldErrors)
		return
	}

	created, err := h.service.Create(r.Context(), req)
	if err != nil {
		api.HandleError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, created)
}

// GetByID godoc
// @Summary      Obtener usuario por ID
// @Tags         Usuarios
// @Produce      json
// @Param        id path string true "Usuario ID"
// @Success      200 {object} types.Usuario
// @Failure      404 {object} api.ErrorEnvelope "Usuario not found"
// @Security     BearerAuth
// @Router       /users/{id} [get]
func (h *UsuarioHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid usuario id")
		return
	}
	u, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, r, h.logger, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, u)
}

// GetByUsername godoc
// @Summary      Obtener usuario por username
// @Tags         Usuarios
// @Produce      json
// @Param        username path string true "Username"
// @Success      200 {object} types.Usuario
// @Failure      404 {object} api.ErrorEnvelope "Usuario not found"
// @Security     BearerAuth
// @Router       /users/username/{username} [get]
func (h *UsuarioHandler) GetByUsername(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.GetByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		api.HandleError(w, r, h.logger, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, u)
}

// List godoc
// @Summary      Obtener todos los usuarios
// @Tags         Usuarios
// @Produce      json
// @Param        page query int false "Page number (0-based)"
// @Param        size query int false "Page size"
// @Param        sort query string false "Sort, e.g. username,desc"
// @Success      200 {object} types.Page[types.Usuario]
// @Security     BearerAuth
// @Router       /users [get]
func (h *UsuarioHandler) List(w http.ResponseWriter, r *http.Request) {
	page := api.ParsePageRequest(r, SortableColumns, DefaultSortColumn)
	result, err := h.service.List(r.Context(), page)
	if err != nil {
		api.HandleError(w, r, h.logger, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, result)
}

// Search godoc
// @Summary      Buscar usuarios
// @Description  Case-insensitive substring match over username, nombre, apellidos and email.
// @Tags         Usuarios
// @Produce      json
// @Param        searchTerm query string true "Term"
// @Success      200 {object} types.Page[types.Usuario]
// @Security     BearerAuth
// @Router       /users/search [get]
func (h *UsuarioHandler) Search(w http.ResponseWriter, r *http.Request) {
	page := api.ParsePageRequest(r, SortableColumns, DefaultSortColumn)
	result, err := h.service.Search(r.Context(), r.URL.Query().Get("searchTerm"), page)
	if err != nil {
		api.HandleError(w, r, h.logger, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, result)
}

// ListByPerfil godoc
// @Summary      Obtener usuarios por perfil
// @Tags         Usuarios
// @Produce      json
// @Param        nombre path string true "Perfil name"
// @Success      200 {object} types.Page[types.Usuario]
// @Security     BearerAuth
// @Router       /users/perfil/{nombre} [get]
func (h *UsuarioHandler) ListByPerfil(w http.ResponseWriter, r *http.Request) {
	page := api.ParsePageRequest(r, SortableColumns, DefaultSortColumn)
	result, err := h.service.ListByPerfil(r.Context(), chi.URLParam(r, "nombre"), page)
	if err != nil {
		api.HandleError(w, r, h.logger, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, result)
}

// Update godoc
// @Summary      Actualizar usuario
// @Tags         Usuarios
// @Accept       json
// @Produce      json
// @Param        id path string true "Usuario ID"
// @Param        usuario body types.UpdateUsuarioRequest true "Usuario"
// @Success      200 {object} types.Usuario
// @Failure      404 {object} api.ErrorEnvelope "Usuario not found"
// @Failure      409 {object} api.ErrorEnvelope "Username or email already exists"
// @Security     BearerAuth
// @Router       /users/{id} [put]
func (h *UsuarioHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid usuario id")
		return
	}
	var req types.UpdateUsuarioRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors := api.ValidateStruct(&req); fieldErrors != nil {
		api.ValidationErrorResponse(w, r, fieldErrors)
		return
	}
	updated, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		api.HandleError(w, r, h.logger, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, updated)
}

// Delete godoc
// @Summary      Eliminar usuario
// @Tags         Usuarios
// @Param        id path string true "Usuario ID"
// @Success      204 "Deleted"
// @Failure      404 {object} api.ErrorEnvelope "Usuario not found"
// @Security     BearerAuth
// @Router       /users/{id} [delete]
func (h *UsuarioHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid usuario id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		api.HandleError(w, r, h.logger, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

// SetEstado godoc
// @Summary      Cambiar estado del usuario
// @Description  Activates or deactivates a usuario. Existing tokens stay valid until expiry.
// @Tags         Usuarios
// @Param        id path string true "Usuario ID"
// @Param        activo query bool true "New state"
// @Success      200 "State changed"
// @Failure      404 {object} api.ErrorEnvelope "Usuario not found"
// @Security     BearerAuth
// @Router       /users/{id}/estado [patch]
func (h *UsuarioHandler) SetEstado(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid usuario id")
		return
	}
	activo, err := strconv.ParseBool(r.URL.Query().Get("activo"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "query parameter 'activo' must be true or false")
		return
	}
	if err := h.service.SetActivo(r.Context(), id, activo); err != nil {
		api.HandleError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// AssignPerfil godoc
// @Summary      Asignar perfil a usuario
// @Description  Idempotent set-add; assigning an already-held perfil is a no-op.
// @Tags         Usuarios
// @Param        id path string true "Usuario ID"
// @Param        perfilId path string true "Perfil ID"
// @Success      200 "Assigned"
// @Failure      404 {object} api.ErrorEnvelope "Usuario or perfil not found"
// @Security     BearerAuth
// @Router       /users/{id}/perfiles/{perfilId} [post]
func (h *UsuarioHandler) AssignPerfil(w http.ResponseWriter, r *http.Request) {
	usuarioID, ok := parseID(r, "id")
	if !ok {
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid usuario id")
		return
	}
	perfilID, ok := parseID(r, "perfilId")
	if !ok {
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid perfil id")
		return
	}
	if err := h.service.AssignPerfil(r.Context(), usuarioID, perfilID); err != nil {
		api.HandleError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// UnassignPerfil godoc
// @Summary      Remover perfil de usuario
// @Description  Idempotent set-remove; removing an unheld perfil is a no-op.
// @Tags         Usuarios
// @Param        id path string true "Usuario ID"
// @Param        perfilId path string true "Perfil ID"
// @Success      200 "Removed"
// @Failure      404 {object} api.ErrorEnvelope "Usuario or perfil not found"
// @Security     BearerAuth
// @Router       /users/{id}/perfiles/{perfilId} [delete]
func (h *UsuarioHandler) UnassignPerfil(w http.ResponseWriter, r *http.Request) {
	usuarioID, ok := parseID(r, "id")
	if !ok {
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid usuario id")
		return
	}
	perfilID, ok := parseID(r, "perfilId")
	if !ok {
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid perfil id")
		return
	}
	if err := h.service.UnassignPerfil(r.Context(), usuarioID, perfilID); err != nil {
		api.HandleError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
