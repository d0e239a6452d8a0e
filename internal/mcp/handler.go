package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"qdrant-gateway/internal/config"
	"qdrant-gateway/internal/contextutil"
	"qdrant-gateway/internal/service"
)

// TextContent is one text block in a tool result.
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ToolResult wraps tool output content blocks.
type ToolResult struct {
	Content []TextContent `json:"content"`
}

// Handler dispatches MCP JSON-RPC requests against the operation dispatcher.
// It is transport-agnostic; the stdio and HTTP servers both route through it.
type Handler struct {
	dispatcher service.Dispatcher
	cfg        *config.Config
}

// NewHandler creates a new MCP handler.
func NewHandler(dispatcher service.Dispatcher, cfg *config.Config) *Handler {
	return &Handler{dispatcher: dispatcher, cfg: cfg}
}

// Handle processes one JSON-RPC request and returns the response, or nil for
// notifications. Tool-level failures come back as successful responses with
// an error-shaped text block; only protocol violations produce JSON-RPC
// error objects.
func (h *Handler) Handle(ctx context.Context, req *Request) *Response {
	resp := h.dispatch(ctx, req)
	if req.IsNotification() {
		return nil
	}
	return resp
}

func (h *Handler) dispatch(ctx context.Context, req *Request) *Response {
	if req.JSONRPC != "2.0" {
		return newError(req.ID, CodeInvalidRequest, "Invalid Request")
	}

	switch req.Method {
	case "initialize":
		return newResult(req.ID, map[string]any{
			"protocolVersion": h.cfg.ProtocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo": map[string]any{
				"name":    h.cfg.ServerName,
				"version": h.cfg.ServerVersion,
			},
		})
	case "tools/list":
		return newResult(req.ID, map[string]any{"tools": Tools(h.cfg)})
	case "tools/call":
		return h.handleToolCall(ctx, req)
	default:
		return newError(req.ID, CodeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))
	}
}

// toolCallParams are the params of a tools/call request.
type toolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

func (h *Handler) handleToolCall(ctx context.Context, req *Request) *Response {
	logger := contextutil.LoggerFromContext(ctx)

	var params toolCallParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return newError(req.ID, CodeInternalError, fmt.Sprintf("Internal error: %v", err))
		}
	}

	var text string
	switch params.Name {
	case ToolStore:
		text = h.callStore(ctx, params.Arguments)
	case ToolFind:
		text = h.callFind(ctx, params.Arguments)
	case ToolListCollections:
		text = h.callListCollections(ctx)
	case ToolCreateCollection:
		text = h.callCreateCollection(ctx, params.Arguments)
	default:
		return newError(req.ID, CodeMethodNotFound, fmt.Sprintf("Tool not found: %s", params.Name))
	}

	logger.DebugContext(ctx, "tool call handled", "tool", params.Name)
	return newResult(req.ID, ToolResult{
		Content: []TextContent{{Type: "text", Text: text}},
	})
}

func (h *Handler) callStore(ctx context.Context, args map[string]any) string {
	content := stringArg(args, "content")
	if content == "" {
		return "Error: No content provided"
	}

	metadata, _ := args["metadata"].(map[string]any)
	result, err := h.dispatcher.Store(ctx, service.StoreArgs{
		Content:    content,
		Metadata:   metadata,
		Collection: stringArg(args, "collection"),
	})
	if err != nil {
		return fmt.Sprintf("Failed to store content: %v", err)
	}

	return fmt.Sprintf("Successfully stored content with ID: %s in collection: %s", result.ID, result.Collection)
}

func (h *Handler) callFind(ctx context.Context, args map[string]any) string {
	query := stringArg(args, "query")
	if query == "" {
		return "Error: No query provided"
	}

	findArgs := service.FindArgs{
		Query:      query,
		Collection: stringArg(args, "collection"),
	}
	if limit, ok := numberArg(args, "limit"); ok {
		findArgs.Limit = int(limit)
	}
	if threshold, ok := numberArg(args, "score_threshold"); ok {
		findArgs.ScoreThreshold = &threshold
	}

	hits, err := h.dispatcher.Find(ctx, findArgs)
	if err != nil {
		return fmt.Sprintf("Failed to search: %v", err)
	}
	if len(hits) == 0 {
		return "No relevant results found"
	}

	formatted := make([]string, 0, len(hits))
	for i, hit := range hits {
		content, _ := hit.Payload["content"].(string)
		metadata := make(map[string]any, len(hit.Payload))
		for k, v := range hit.Payload {
			if k != "content" {
				metadata[k] = v
			}
		}

		text := fmt.Sprintf("Result %d (score: %.3f):\n%s", i+1, hit.Score, content)
		if len(metadata) > 0 {
			if encoded, err := json.MarshalIndent(metadata, "", "  "); err == nil {
				text += fmt.Sprintf("\nMetadata: %s", encoded)
			}
		}
		formatted = append(formatted, text)
	}

	return fmt.Sprintf("Found %d results:\n\n%s", len(hits), strings.Join(formatted, "\n\n---\n\n"))
}

func (h *Handler) callListCollections(ctx context.Context) string {
	names, err := h.dispatcher.ListCollections(ctx)
	if err != nil {
		return fmt.Sprintf("Failed to list collections: %v", err)
	}
	if len(names) == 0 {
		return "No collections found"
	}

	var b strings.Builder
	b.WriteString("Collections:")
	for _, name := range names {
		b.WriteString("\n- ")
		b.WriteString(name)
	}
	return b.String()
}

func (h *Handler) callCreateCollection(ctx context.Context, args map[string]any) string {
	name := stringArg(args, "name")
	if name == "" {
		return "Error: No collection name provided"
	}

	createArgs := service.CreateCollectionArgs{Name: name}
	if size, ok := numberArg(args, "vector_size"); ok {
		createArgs.VectorSize = int(size)
	}

	if err := h.dispatcher.CreateCollection(ctx, createArgs); err != nil {
		return fmt.Sprintf("Failed to create collection: %v", err)
	}

	vectorSize := createArgs.VectorSize
	if vectorSize <= 0 {
		vectorSize = h.cfg.VectorSize
	}
	return fmt.Sprintf("Successfully created collection '%s' with vector size %d", name, vectorSize)
}

// stringArg reads a string argument, returning "" when absent or mistyped.
func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// numberArg reads a numeric argument. JSON numbers decode as float64.
func numberArg(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
