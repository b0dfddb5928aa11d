package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/gestionusuarios/gestion-usuarios/internal/types"
)

// ErrorEnvelope is the JSON body for every non-2xx response.
type ErrorEnvelope struct {
	Status    int               `json:"status"`
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Path      string            `json:"path"`
	Timestamp time.Time         `json:"timestamp"`
	RequestID string            `json:"request_id,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// ErrorResponse writes a standard JSON error envelope.
func ErrorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeErrorEnvelope(w, r, status, message, nil)
}

// ValidationErrorResponse writes a 400 envelope with per-field messages.
func ValidationErrorResponse(w http.ResponseWriter, r *http.Request, fieldErrors map[string]string) {
	writeErrorEnvelope(w, r, http.StatusBadRequest, "validation failed", fieldErrors)
}

func writeErrorEnvelope(w http.ResponseWriter, r *http.Request, status int, message string, fieldErrors map[string]string) {
	resp := ErrorEnvelope{
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Path:      r.URL.Path,
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetReqID(r.Context()),
		Errors:    fieldErrors,
	}
	WriteJSONResponse(w, r, status, resp)
}

// HandleError translates a service error into the matching HTTP status.
// Every operation returns an error wrapping one of the types sentinels;
// anything unrecognized becomes a 500 so no raw fault leaks out.
func HandleError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var status int
	switch {
	case errors.Is(err, types.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, types.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, types.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, types.ErrValidation):
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
	}
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Unhandled service error", slog.Any("error", err))
		ErrorResponse(w, r, status, "internal server error")
		return
	}
	ErrorResponse(w, r, status, err.Error())
}

// WriteJSONResponse encodes the data to JSON and writes the response header and body.
func WriteJSONResponse(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if status == http.StatusNoContent || data == nil {
		w.WriteHeader(status)
		return
	}

	js, err := json.Marshal(data)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to marshal JSON response",
			slog.Any("error", err),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(js); err != nil {
		slog.ErrorContext(r.Context(), "Failed to write response body",
			slog.Any("error", err),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	}
}

// DecodeJSONBody reads and decodes a JSON request body safely.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)

		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")

		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q (wanted %s)", unmarshalTypeError.Field, unmarshalTypeError.Type)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)

		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")

		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytesError.Limit)

		default:
			return fmt.Errorf("error decoding JSON body: %w", err)
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	// Report field names as they appear on the wire.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// ValidateStruct runs the validator tags on the request body and returns
// one message per failing field, keyed by JSON field name.
func ValidateStruct(dst interface{}) map[string]string {
	err := validate.Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"body": err.Error()}
	}
	fieldErrors := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fieldErrors[fe.Field()] = validationMessage(fe)
	}
	return fieldErrors
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// ParsePageRequest reads page/size/sort query parameters. sort takes the
// form "field" or "field,desc"; sortable maps wire field names to SQL
// columns and unknown fields fall back to the default.
func ParsePageRequest(r *http.Request, sortable map[string]string, defaultSort string) types.PageRequest {
	q := r.URL.Query()

	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 0 {
		page = 0
	}
	size, err := strconv.Atoi(q.Get("size"))
	if err != nil || size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	column := defaultSort
	descending := false
	if sort := q.Get("sort"); sort != "" {
		parts := strings.SplitN(sort, ",", 2)
		if col, ok := sortable[parts[0]]; ok {
			column = col
		}
		if len(parts) == 2 && strings.EqualFold(parts[1], "desc") {
			descending = true
		}
	}

	return types.PageRequest{
		Page:       page,
		Size:       size,
		SortColumn: column,
		Descending: descending,
	}
}
