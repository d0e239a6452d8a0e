package mcp

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"qdrant-gateway/internal/contextutil"
)

// HTTPHandler serves JSON-RPC over HTTP POST. One request object per body,
// or a batch array answered with an array of responses in request order.
type HTTPHandler struct {
	handler *Handler
}

// NewHTTPHandler creates the HTTP transport for the MCP handler.
func NewHTTPHandler(handler *Handler) *HTTPHandler {
	return &HTTPHandler{handler: handler}
}

// ServeHTTP handles one MCP HTTP request. Malformed JSON yields a parse error
// with a null id; notifications yield an empty 200 body.
func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.WarnContext(ctx, "failed to read request body", "error", err)
		writeResponse(w, newError(nil, CodeInternalError, "Internal error"))
		return
	}

	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		h.serveBatch(w, r, trimmed)
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeResponse(w, newError(nil, CodeParseError, "Parse error"))
		return
	}

	resp := h.handler.Handle(ctx, &req)
	if resp == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	writeResponse(w, resp)
}

// serveBatch answers a JSON-RPC batch array. Notifications contribute no
// entry; responses keep the request order.
func (h *HTTPHandler) serveBatch(w http.ResponseWriter, r *http.Request, body []byte) {
	ctx := r.Context()

	var rawRequests []json.RawMessage
	if err := json.Unmarshal(body, &rawRequests); err != nil {
		writeResponse(w, newError(nil, CodeParseError, "Parse error"))
		return
	}
	if len(rawRequests) == 0 {
		writeResponse(w, newError(nil, CodeInvalidRequest, "Invalid Request"))
		return
	}

	responses := make([]*Response, 0, len(rawRequests))
	for _, raw := range rawRequests {
		var req Request
		if err := json.Unmarshal(raw, &req); err != nil {
			responses = append(responses, newError(nil, CodeInvalidRequest, "Invalid Request"))
			continue
		}
		if resp := h.handler.Handle(ctx, &req); resp != nil {
			responses = append(responses, resp)
		}
	}

	if len(responses) == 0 {
		w.WriteHeader(http.StatusOK)
		return
	}
	writeResponse(w, responses)
}

// writeResponse serializes a response (or batch of responses) as JSON.
func writeResponse(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
