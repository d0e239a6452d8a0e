package mcp

import (
	"fmt"

	"qdrant-gateway/internal/config"
)

// Tool names exposed over tools/list and tools/call.
const (
	ToolStore            = "qdrant-store"
	ToolFind             = "qdrant-find"
	ToolListCollections  = "qdrant-list-collections"
	ToolCreateCollection = "qdrant-create-collection"
)

// ToolDescriptor describes one tool for tools/list.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// Tools returns the tool descriptors. Schema defaults reflect the resolved
// settings so clients see the collection, limit and threshold they will get
// when they omit an argument.
func Tools(cfg *config.Config) []ToolDescriptor {
	return []ToolDescriptor{
		{
			Name:        ToolStore,
			Description: "Store information in Qdrant vector database with semantic search capability",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"content": map[string]any{
						"type":        "string",
						"description": "The content to store",
					},
					"metadata": map[string]any{
						"type":                 "object",
						"description":          "Optional metadata to store with the content",
						"additionalProperties": true,
					},
					"collection": map[string]any{
						"type":        "string",
						"description": fmt.Sprintf("Collection name (default: %s)", cfg.CollectionName),
						"default":     cfg.CollectionName,
					},
				},
				"required": []string{"content"},
			},
		},
		{
			Name:        ToolFind,
			Description: "Find relevant information using semantic search in Qdrant",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "The search query",
					},
					"limit": map[string]any{
						"type":        "integer",
						"description": fmt.Sprintf("Number of results to return (default: %d)", cfg.TopK),
						"default":     cfg.TopK,
					},
					"score_threshold": map[string]any{
						"type":        "number",
						"description": fmt.Sprintf("Minimum similarity score (default: %g)", cfg.MinScore),
						"default":     cfg.MinScore,
					},
					"collection": map[string]any{
						"type":        "string",
						"description": fmt.Sprintf("Collection name (default: %s)", cfg.CollectionName),
						"default":     cfg.CollectionName,
					},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        ToolListCollections,
			Description: "List all collections in Qdrant database",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name:        ToolCreateCollection,
			Description: "Create a new collection in Qdrant",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name": map[string]any{
						"type":        "string",
						"description": "Collection name",
					},
					"vector_size": map[string]any{
						"type":        "integer",
						"description": fmt.Sprintf("Vector dimension size (default: %d)", cfg.VectorSize),
						"default":     cfg.VectorSize,
					},
				},
				"required": []string{"name"},
			},
		},
	}
}
