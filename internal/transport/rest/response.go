package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/heartmarshall/submission-backend/internal/domain"
)

type errorResponse struct {
	Error  string               `json:"error"`
	Code   domain.Kind          `json:"code,omitempty"`
	Fields []fieldErrorResponse `json:"fields,omitempty"`
}

type fieldErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

var kindStatus = map[domain.Kind]int{
	domain.KindBadRequest:         http.StatusBadRequest,
	domain.KindUnauthorized:       http.StatusUnauthorized,
	domain.KindForbidden:          http.StatusForbidden,
	domain.KindNotFound:           http.StatusNotFound,
	domain.KindStatusConflict:     http.StatusConflict,
	domain.KindServiceUnavailable: http.StatusServiceUnavailable,
	domain.KindInternal:           http.StatusInternalServerError,
}

// handleError answers with the status of the error's taxonomy kind. Client
// errors echo their message; unavailable and internal errors are logged and
// answered generically.
func handleError(log *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := kindStatus[kind]
	resp := errorResponse{Error: err.Error(), Code: kind}

	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		resp.Error = "validation failed"
		resp.Fields = make([]fieldErrorResponse, len(verr.Errors))
		for i, fe := range verr.Errors {
			resp.Fields[i] = fieldErrorResponse{Field: fe.Field, Message: fe.Message}
		}
	case kind == domain.KindUnauthorized:
		resp.Error = "unauthorized"
	case kind == domain.KindForbidden:
		resp.Error = "forbidden"
	case kind == domain.KindServiceUnavailable:
		log.WarnContext(r.Context(), "service unavailable", slog.String("error", err.Error()))
		resp.Error = "service unavailable"
	case kind == domain.KindInternal:
		log.ErrorContext(r.Context(), "internal error",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		resp.Error = "internal server error"
	}
	writeJSON(w, status, resp)
}

// decodeJSON reads the request body into v. Malformed bodies are bad requests.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.NewValidationError("body", fmt.Sprintf("exceeds %d bytes", tooLarge.Limit))
		}
		return domain.NewValidationError("body", "invalid JSON")
	}
	return nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, domain.NewValidationError(name, "must be a UUID")
	}
	return id, nil
}

// queryInt returns def when the parameter is absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, domain.NewValidationError(name, "must be an integer")
	}
	return n, nil
}

func queryBool(r *http.Request, name string) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, domain.NewValidationError(name, "must be a boolean")
	}
	return b, nil
}
