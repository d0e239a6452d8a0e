package handlers

import (
	"encoding/json"
	"net/http"

	"qdrant-gateway/internal/contextutil"
	"qdrant-gateway/internal/service"
)

// VectorUpsertHandler handles POST /vectors/upsert.
type VectorUpsertHandler struct {
	dispatcher service.Dispatcher
}

// NewVectorUpsertHandler creates a new VectorUpsertHandler.
func NewVectorUpsertHandler(dispatcher service.Dispatcher) *VectorUpsertHandler {
	return &VectorUpsertHandler{dispatcher: dispatcher}
}

// VectorPoint represents one point in an upsert request. When Vector is
// omitted and Content is set, the content is embedded server-side.
type VectorPoint struct {
	ID      string         `json:"id,omitempty"`
	Vector  []float32      `json:"vector,omitempty"`
	Content string         `json:"content,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// UpsertRequest represents the request payload for vector upsert.
type UpsertRequest struct {
	Collection string        `json:"collection,omitempty"`
	Points     []VectorPoint `json:"points"`
}

// UpsertResponse represents the response for a successful upsert.
type UpsertResponse struct {
	Status   string   `json:"status"`
	Upserted int      `json:"upserted"`
	IDs      []string `json:"ids"`
}

// ServeHTTP upserts a batch of points. The batch fails together if embedding
// or the underlying write fails.
func (h *VectorUpsertHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req UpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid upsert request", "error", err)
		writeJSON(ctx, w, http.StatusBadRequest, ErrorResponse{Detail: "invalid request body"})
		return
	}

	points := make([]service.PointArgs, len(req.Points))
	for i, p := range req.Points {
		points[i] = service.PointArgs{
			ID:      p.ID,
			Content: p.Content,
			Vector:  p.Vector,
			Payload: p.Payload,
		}
	}

	ids, err := h.dispatcher.StoreBatch(ctx, req.Collection, points)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, UpsertResponse{
		Status:   "success",
		Upserted: len(ids),
		IDs:      ids,
	})
}

// VectorSearchHandler handles POST /vectors/search.
type VectorSearchHandler struct {
	dispatcher service.Dispatcher
}

// NewVectorSearchHandler creates a new VectorSearchHandler.
func NewVectorSearchHandler(dispatcher service.Dispatcher) *VectorSearchHandler {
	return &VectorSearchHandler{dispatcher: dispatcher}
}

// SearchRequest represents the request payload for semantic search. Absent
// collection, limit and score_threshold fall back to configured defaults.
type SearchRequest struct {
	Query          string   `json:"query"`
	Collection     string   `json:"collection,omitempty"`
	Limit          int      `json:"limit,omitempty"`
	ScoreThreshold *float64 `json:"score_threshold,omitempty"`
}

// SearchHit represents one hit in the search response.
type SearchHit struct {
	ID      string         `json:"id"`
	Score   float32        `json:"score"`
	Payload map[string]any `json:"payload"`
}

// SearchResponse represents the search response.
type SearchResponse struct {
	Query string      `json:"query"`
	Hits  []SearchHit `json:"hits"`
	Total int         `json:"total"`
}

// ServeHTTP embeds the query and searches for similar points. Hit order is
// the store's native descending-score order; zero hits is a normal response.
func (h *VectorSearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid search request", "error", err)
		writeJSON(ctx, w, http.StatusBadRequest, ErrorResponse{Detail: "invalid request body"})
		return
	}

	hits, err := h.dispatcher.Find(ctx, service.FindArgs{
		Query:          req.Query,
		Collection:     req.Collection,
		Limit:          req.Limit,
		ScoreThreshold: req.ScoreThreshold,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	respHits := make([]SearchHit, len(hits))
	for i, hit := range hits {
		respHits[i] = SearchHit{ID: hit.ID, Score: hit.Score, Payload: hit.Payload}
	}

	writeJSON(ctx, w, http.StatusOK, SearchResponse{
		Query: req.Query,
		Hits:  respHits,
		Total: len(respHits),
	})
}
