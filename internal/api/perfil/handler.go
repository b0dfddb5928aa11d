package perfil

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gestionusuarios/gestion-usuarios/internal/api"
	"github.com/gestionusuarios/gestion-usuarios/internal/types"
)

type PerfilHandler struct {
	service PerfilService
	logger  *slog.Logger
}

func NewPerfilHandler(service PerfilService, logger *slog.Logger) *PerfilHandler {
	return &PerfilHandler{
		service: service,
		logger:  logger,
	}
}

// Create godoc
// @Summary      Crear nuevo perfil
// @Tags         Perfiles
// @Accept       json
// @Produce      json
// @Param        perfil body types.PerfilRequest true "Perfil"
// @Success      201 {object} types.Perfil "Created"
// @Failure      400 {object} api.ErrorEnvelope "Validation failed"
// @Failure      409 {object} api.ErrorEnvelope "Perfil already exists"
// @Security     BearerAuth
// @Router       /perfiles [post]
func (h *PerfilHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.PerfilRequest
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
		api.HandleError(w, r, h.logger, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, created)
}

// GetByID godoc
// @Summary      Obtener perfil por ID
// @Tags         Perfiles
// @Produce      json
// @Param        id path string true "Perfil ID"
// @Success      200 {object} types.Perfil
// @Failure      404 {object} api.ErrorEnvelope "Perfil not found"
// @Security     BearerAuth
// @Router       /perfiles/{id} [get]
func (h *PerfilHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid perfil id")
		return
	}
	p, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, r, h.logger, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, p)
}

// GetByNombre godoc
// @Summary      Obtener perfil por nombre
// @Tags         Perfiles
// @Produce      json
// @Param        nombre path string true "Perfil name"
// @Success      200 {object} types.Perfil
// @Failure      404 {object} api.ErrorEnvelope "Perfil not found"
// @Security     BearerAuth
// @Router       /perfiles/nombre/{nombre} [get]
func (h *PerfilHandler) GetByNombre(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetByNombre(r.Context(), chi.URLParam(r, "nombre"))
	if err != nil {
		api.HandleError(w, r, h.logger, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, p)
}

// List godoc
// @Summary      Obtener todos los perfiles
// @Tags         Perfiles
// @Produce      json
// @Param        page query int false "Page number (0-based)"
// @Param        size query int false "Page size"
// @Param        sort query string false "Sort, e.g. nombre,desc"
// @Success      200 {object} types.Page[types.Perfil]
// @Security     BearerAuth
// @Router       /perfiles [get]
func (h *PerfilHandler) List(w http.ResponseWriter, r *http.Request) {
	page := api.ParsePageRequest(r, SortableColumns, DefaultSortColumn)
	result, err := h.service.List(r.Context(), page)
	if err != nil {
		api.HandleError(w, r, h.logger, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, result)
}

// Search godoc
// @Summary      Buscar perfiles
// @Description  Case-insensitive substring match over nombre and descripcion.
// @Tags         Perfiles
// @Produce      json
// @Param        searchTerm query string true "Term"
// @Success      200 {object} types.Page[types.Perfil]
// @Security     BearerAuth
// @Router       /perfiles/search [get]
func (h *PerfilHandler) Search(w http.ResponseWriter, r *http.Request) {
	page := api.ParsePageRequest(r, SortableColumns, DefaultSortColumn)
	result, err := h.service.Search(r.Context(), r.URL.Query().Get("searchTerm"), page)
	if err != nil {
		api.HandleError(w, r, h.logger, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, result)
}

// Update godoc
// @Summary      Actualizar perfil
// @Tags         Perfiles
// @Accept       json
// @Produce      json
// @Param        id path string true "Perfil ID"
// @Param        perfil body types.PerfilRequest true "Perfil"
// @Success      200 {object} types.Perfil
// @Failure      404 {object} api.ErrorEnvelope "Perfil not found"
// @Failure      409 {object} api.ErrorEnvelope "Perfil name already exists"
// @Security     BearerAuth
// @Router       /perfiles/{id} [put]
func (h *PerfilHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid perfil id")
		return
	}
	var req types.PerfilRequest
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
// @Summary      Eliminar perfil
// @Description  Fails with 409 while any usuario still holds the perfil.
// @Tags         Perfiles
// @Param        id path string true "Perfil ID"
// @Success      204 "Deleted"
// @Failure      404 {object} api.ErrorEnvelope "Perfil not found"
// @Failure      409 {object} api.ErrorEnvelope "Perfil has associated usuarios"
// @Security     BearerAuth
// @Router       /perfiles/{id} [delete]
func (h *PerfilHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid perfil id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		api.HandleError(w, r, h.logger, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}
