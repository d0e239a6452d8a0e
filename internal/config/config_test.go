package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

// setEnv sets an environment variable, ignoring errors (for test setup)
func setEnv(key, value string) {
	_ = os.Setenv(key, value)
}

// unsetEnv unsets an environment variable, ignoring errors (for test cleanup)
func unsetEnv(key string) {
	_ = os.Unsetenv(key)
}

var configEnvVars = []string{
	"QDRANT_HOST", "QDRANT_PORT", "QDRANT_GRPC_PORT",
	"COLLECTION_NAME", "VECTOR_SIZE", "DISTANCE_METRIC",
	"TOP_K", "MIN_SCORE", "MAX_TOKENS",
	"EMBEDDING_MODEL", "EMBEDDING_BASE_URL", "EMBEDDING_API_KEY",
	"API_PORT", "MCP_PORT", "MCP_STDIO_MODE",
	"MCP_SERVER_NAME", "MCP_SERVER_VERSION", "MCP_PROTOCOL_VERSION",
	"LOG_LEVEL", "LOG_FORMAT", "QDRANT_MCP_CONFIG",
}

// withCleanEnv clears all gateway environment variables and restores them
// after the test.
func withCleanEnv(t *testing.T) {
	t.Helper()
	original := make(map[string]string)
	for _, key := range configEnvVars {
		original[key] = os.Getenv(key)
		unsetEnv(key)
	}
	t.Cleanup(func() {
		for key, value := range original {
			if value != "" {
				setEnv(key, value)
			} else {
				unsetEnv(key)
			}
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	withCleanEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.QdrantHost != "localhost" {
		t.Errorf("QdrantHost = %v, want localhost", cfg.QdrantHost)
	}
	if cfg.QdrantPort != 6333 {
		t.Errorf("QdrantPort = %v, want 6333", cfg.QdrantPort)
	}
	if cfg.QdrantGRPCPort != 6334 {
		t.Errorf("QdrantGRPCPort = %v, want 6334", cfg.QdrantGRPCPort)
	}
	if cfg.CollectionName != "claude_vectors" {
		t.Errorf("CollectionName = %v, want claude_vectors", cfg.CollectionName)
	}
	if cfg.VectorSize != 384 {
		t.Errorf("VectorSize = %v, want 384", cfg.VectorSize)
	}
	if cfg.DistanceMetric != "cosine" {
		t.Errorf("DistanceMetric = %v, want cosine", cfg.DistanceMetric)
	}
	if cfg.TopK != 10 {
		t.Errorf("TopK = %v, want 10", cfg.TopK)
	}
	if cfg.MinScore != 0.22 {
		t.Errorf("MinScore = %v, want 0.22", cfg.MinScore)
	}
	if cfg.ServerName != "qdrant-mcp" {
		t.Errorf("ServerName = %v, want qdrant-mcp", cfg.ServerName)
	}
	if cfg.ProtocolVersion != "2024-11-05" {
		t.Errorf("ProtocolVersion = %v, want 2024-11-05", cfg.ProtocolVersion)
	}
	if cfg.MCPStdio {
		t.Error("MCPStdio = true, want false")
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	withCleanEnv(t)
	setEnv("QDRANT_HOST", "qdrant.internal")
	setEnv("QDRANT_PORT", "7333")
	setEnv("COLLECTION_NAME", "memories")
	setEnv("VECTOR_SIZE", "768")
	setEnv("TOP_K", "5")
	setEnv("MIN_SCORE", "0.5")
	setEnv("DISTANCE_METRIC", "dot")
	setEnv("MCP_STDIO_MODE", "true")
	setEnv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.QdrantHost != "qdrant.internal" {
		t.Errorf("QdrantHost = %v, want qdrant.internal", cfg.QdrantHost)
	}
	if cfg.QdrantPort != 7333 {
		t.Errorf("QdrantPort = %v, want 7333", cfg.QdrantPort)
	}
	if cfg.CollectionName != "memories" {
		t.Errorf("CollectionName = %v, want memories", cfg.CollectionName)
	}
	if cfg.VectorSize != 768 {
		t.Errorf("VectorSize = %v, want 768", cfg.VectorSize)
	}
	if cfg.TopK != 5 {
		t.Errorf("TopK = %v, want 5", cfg.TopK)
	}
	if cfg.MinScore != 0.5 {
		t.Errorf("MinScore = %v, want 0.5", cfg.MinScore)
	}
	if cfg.DistanceMetric != "dot" {
		t.Errorf("DistanceMetric = %v, want dot", cfg.DistanceMetric)
	}
	if !cfg.MCPStdio {
		t.Error("MCPStdio = false, want true")
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name     string
		setupEnv func()
	}{
		{
			name: "non-integer port",
			setupEnv: func() {
				setEnv("QDRANT_PORT", "not-a-port")
			},
		},
		{
			name: "non-integer vector size",
			setupEnv: func() {
				setEnv("VECTOR_SIZE", "large")
			},
		},
		{
			name: "zero vector size",
			setupEnv: func() {
				setEnv("VECTOR_SIZE", "0")
			},
		},
		{
			name: "non-numeric min score",
			setupEnv: func() {
				setEnv("MIN_SCORE", "low")
			},
		},
		{
			name: "unknown distance metric",
			setupEnv: func() {
				setEnv("DISTANCE_METRIC", "manhattan")
			},
		},
		{
			name: "unknown log level",
			setupEnv: func() {
				setEnv("LOG_LEVEL", "verbose")
			},
		},
		{
			name: "unknown log format",
			setupEnv: func() {
				setEnv("LOG_FORMAT", "xml")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withCleanEnv(t)
			tt.setupEnv()

			if _, err := Load(); err == nil {
				t.Error("Load() expected error, got nil")
			}
		})
	}
}

func TestLoad_ConfigFilePrecedence(t *testing.T) {
	withCleanEnv(t)

	// Env sets one value, the file overrides it; env values not present in
	// the file must survive.
	setEnv("COLLECTION_NAME", "from_env")
	setEnv("TOP_K", "3")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
qdrant:
  host: qdrant.file
vector:
  collection_name: from_file
  vector_size: 512
mcp:
  server_name: file-mcp
  port: 9001
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	setEnv("QDRANT_MCP_CONFIG", configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.CollectionName != "from_file" {
		t.Errorf("CollectionName = %v, want from_file (file wins over env)", cfg.CollectionName)
	}
	if cfg.QdrantHost != "qdrant.file" {
		t.Errorf("QdrantHost = %v, want qdrant.file", cfg.QdrantHost)
	}
	if cfg.VectorSize != 512 {
		t.Errorf("VectorSize = %v, want 512", cfg.VectorSize)
	}
	if cfg.ServerName != "file-mcp" {
		t.Errorf("ServerName = %v, want file-mcp", cfg.ServerName)
	}
	if cfg.MCPPort != "9001" {
		t.Errorf("MCPPort = %v, want 9001", cfg.MCPPort)
	}
	if cfg.TopK != 3 {
		t.Errorf("TopK = %v, want 3 (env value not in file survives)", cfg.TopK)
	}
}

func TestLoad_ConfigFileMissingIsIgnored(t *testing.T) {
	withCleanEnv(t)
	setEnv("QDRANT_MCP_CONFIG", filepath.Join(t.TempDir(), "does-not-exist.yaml"))

	if _, err := Load(); err != nil {
		t.Errorf("Load() error = %v, want nil for missing config file", err)
	}
}

func TestLoad_ConfigFileUnparsable(t *testing.T) {
	withCleanEnv(t)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("qdrant: [not: valid"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	setEnv("QDRANT_MCP_CONFIG", configPath)

	if _, err := Load(); err == nil {
		t.Error("Load() expected error for unparsable config file, got nil")
	}
}
