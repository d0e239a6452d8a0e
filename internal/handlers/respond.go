package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"qdrant-gateway/internal/contextutil"
	"qdrant-gateway/internal/service"
	"qdrant-gateway/internal/vectorstore"
)

// ErrorResponse is the JSON body for failed requests.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// writeJSON serializes v as the response body with the given status.
func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeError maps a dispatcher error to an HTTP status and writes the error
// body. Validation failures and explicit-create conflicts map to 400, unknown
// collections to 404, everything else (embedding, store, internal) to 500.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
	case errors.Is(err, vectorstore.ErrCollectionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, vectorstore.ErrCollectionExists):
		status = http.StatusBadRequest
	}

	writeJSON(ctx, w, status, ErrorResponse{Detail: err.Error()})
}
