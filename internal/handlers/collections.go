package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"qdrant-gateway/internal/contextutil"
	"qdrant-gateway/internal/service"
)

// CollectionGetHandler handles GET /collections/{name}.
type CollectionGetHandler struct {
	dispatcher service.Dispatcher
}

// NewCollectionGetHandler creates a new CollectionGetHandler.
func NewCollectionGetHandler(dispatcher service.Dispatcher) *CollectionGetHandler {
	return &CollectionGetHandler{dispatcher: dispatcher}
}

// CollectionResponse represents collection info in the HTTP response.
type CollectionResponse struct {
	Name        string `json:"name"`
	VectorSize  int    `json:"vector_size"`
	Distance    string `json:"distance"`
	PointsCount int    `json:"points_count"`
	Status      string `json:"status"`
}

// ServeHTTP returns collection info, or 404 for an unknown collection.
func (h *CollectionGetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	name := chi.URLParam(r, "name")
	info, err := h.dispatcher.GetCollection(ctx, name)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, CollectionResponse{
		Name:        info.Name,
		VectorSize:  info.VectorSize,
		Distance:    info.Distance,
		PointsCount: info.PointsCount,
		Status:      info.Status,
	})
}

// CollectionCreateHandler handles POST /collections.
type CollectionCreateHandler struct {
	dispatcher service.Dispatcher
}

// NewCollectionCreateHandler creates a new CollectionCreateHandler.
func NewCollectionCreateHandler(dispatcher service.Dispatcher) *CollectionCreateHandler {
	return &CollectionCreateHandler{dispatcher: dispatcher}
}

// CreateCollectionRequest represents the request payload for collection creation.
type CreateCollectionRequest struct {
	Name       string `json:"name"`
	VectorSize int    `json:"vector_size,omitempty"`
	Distance   string `json:"distance,omitempty"`
}

// CreateCollectionResponse represents the response for a created collection.
type CreateCollectionResponse struct {
	Status     string `json:"status"`
	Collection string `json:"collection"`
}

// ServeHTTP creates a collection. Explicit creation is not idempotent: an
// existing collection with the same name is a 400.
func (h *CollectionCreateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req CreateCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid create collection request", "error", err)
		writeJSON(ctx, w, http.StatusBadRequest, ErrorResponse{Detail: "invalid request body"})
		return
	}

	err := h.dispatcher.CreateCollection(ctx, service.CreateCollectionArgs{
		Name:       req.Name,
		VectorSize: req.VectorSize,
		Distance:   req.Distance,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, CreateCollectionResponse{
		Status:     "created",
		Collection: req.Name,
	})
}
