package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gestionusuarios/gestion-usuarios/app/observability/metrics"
	"github.com/gestionusuarios/gestion-usuarios/internal/api"
	"github.com/gestionusuarios/gestion-usuarios/internal/types"
)

type AuthHandler struct {
	service AuthService
	logger  *slog.Logger
	metrics *metrics.AppMetrics
}

func NewAuthHandler(service AuthService, appMetrics *metrics.AppMetrics, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger,
		metrics: appMetrics,
	}
}

// Signin godoc
// @Summary      Iniciar sesión
// @Description  Authenticates a user and returns a signed bearer token plus an identity summary.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        credentials body types.SigninRequest true "Username and password"
// @Success      200 {object} types.JwtResponse "Authentication successful"
// @Failure      400 {object} api.ErrorEnvelope "Invalid request body"
// @Failure      401 {object} api.ErrorEnvelope "Invalid credentials"
// @Router       /auth/signin [post]
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Signin"))
	start := time.Now()

	var req types.SigninRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors := api.ValidateStruct(&req); fieldErrors != nil {
		api.ValidationErrorResponse(w, r, fieldErrors)
		return
	}

	resp, err := h.service.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		h.metrics.RecordSignin(ctx, false, time.Since(start).Seconds())
		l.WarnContext(ctx, "Authentication failed", slog.String("username", req.Username))
		api.HandleError(w, r, l, err)
		return
	}

	h.metrics.RecordSignin(ctx, true, time.Since(start).Seconds())
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}
