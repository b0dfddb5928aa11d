package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestionusuarios/gestion-usuarios/internal/types"
)

func TestParsePageRequest(t *testing.T) {
	sortable := map[string]string{
		"username":      "username",
		"fechaCreacion": "fecha_creacion",
	}

	tests := []struct {
		name  string
		query string
		want  types.PageRequest
	}{
		{
			name:  "defaults",
			query: "",
			want:  types.PageRequest{Page: 0, Size: 10, SortColumn: "fecha_creacion"},
		},
		{
			name:  "explicit page and size",
			query: "page=2&size=25",
			want:  types.PageRequest{Page: 2, Size: 25, SortColumn: "fecha_creacion"},
		},
		{
			name:  "sort ascending",
			query: "sort=username",
			want:  types.PageRequest{Page: 0, Size: 10, SortColumn: "username"},
		},
		{
			name:  "sort descending",
			query: "sort=username,desc",
			want:  types.PageRequest{Page: 0, Size: 10, SortColumn: "username", Descending: true},
		},
		{
			name:  "unknown sort falls back to default",
			query: "sort=password_hash,desc",
			want:  types.PageRequest{Page: 0, Size: 10, SortColumn: "fecha_creacion", Descending: true},
		},
		{
			name:  "size capped",
			query: "size=5000",
			want:  types.PageRequest{Page: 0, Size: 100, SortColumn: "fecha_creacion"},
		},
		{
			name:  "negative page reset",
			query: "page=-3",
			want:  types.PageRequest{Page: 0, Size: 10, SortColumn: "fecha_creacion"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/users?"+tt.query, nil)
			got := ParsePageRequest(r, sortable, "fecha_creacion")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid body", func(t *testing.T) {
		req := types.SigninRequest{Username: "jdoe", Password: "secret123"}
		assert.Nil(t, ValidateStruct(&req))
	})

	t.Run("field errors keyed by json name", func(t *testing.T) {
		req := types.CreateUsuarioRequest{Username: "ab", Email: "not-an-email"}
		fieldErrors := ValidateStruct(&req)

		require.NotNil(t, fieldErrors)
		assert.Contains(t, fieldErrors, "username")
		assert.Contains(t, fieldErrors, "email")
		assert.Contains(t, fieldErrors, "password")
		assert.Contains(t, fieldErrors, "nombre")
	})
}

func TestHandleError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", fmt.Errorf("usuario x: %w", types.ErrNotFound), http.StatusNotFound},
		{"conflict", fmt.Errorf("username taken: %w", types.ErrConflict), http.StatusConflict},
		{"invalid credentials", types.ErrInvalidCredentials, http.StatusUnauthorized},
		{"validation", fmt.Errorf("bad field: %w", types.ErrValidation), http.StatusBadRequest},
		{"unknown", fmt.Errorf("pool exhausted"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/users", nil)
			rr := httptest.NewRecorder()

			HandleError(rr, r, logger, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			var envelope ErrorEnvelope
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
			assert.Equal(t, tt.wantStatus, envelope.Status)
			assert.Equal(t, "/users", envelope.Path)
		})
	}

	t.Run("unknown error does not leak detail", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/users", nil)
		rr := httptest.NewRecorder()

		HandleError(rr, r, logger, fmt.Errorf("dial tcp 10.0.0.5:5432: connection refused"))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.NotContains(t, rr.Body.String(), "10.0.0.5")
	})
}

func TestDecodeJSONBody(t *testing.T) {
	t.Run("empty body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/auth/signin", nil)
		rr := httptest.NewRecorder()

		var dst types.SigninRequest
		err := DecodeJSONBody(rr, r, &dst)
		assert.EqualError(t, err, "body must not be empty")
	})
}
