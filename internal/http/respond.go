package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"expenses/internal/core"
)

type errorResponse struct {
	Error  string `json:"error"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(ctx, "Failed to encode response", "error", err)
	}
}

// writeError maps domain errors onto HTTP statuses. Internal failures are
// logged in full but reported to the caller without detail.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var validation *core.ValidationError
	var refNotFound *core.ReferenceNotFoundError

	switch {
	case errors.Is(err, core.ErrUnauthorized):
		writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	case errors.As(err, &validation):
		writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			Error:  "validation failed",
			Field:  validation.Field,
			Reason: validation.Reason,
		})
	case errors.As(err, &refNotFound):
		writeJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: refNotFound.Error()})
	case errors.Is(err, core.ErrQuotaExceeded):
		writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			Error: "guest expense limit reached; register an account to keep adding expenses",
		})
	case errors.Is(err, core.ErrNotFound):
		writeJSON(ctx, w, http.StatusNotFound, errorResponse{Error: "expense not found"})
	default:
		slog.ErrorContext(ctx, "Request failed", "error", err)
		writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
