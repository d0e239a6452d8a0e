package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the resolved settings for the gateway. It is built once at
// startup and must be treated as read-only afterwards; every component shares
// the same snapshot.
type Config struct {
	QdrantHost     string
	QdrantPort     int
	QdrantGRPCPort int

	CollectionName string
	VectorSize     int
	DistanceMetric string
	TopK           int
	MinScore       float64
	MaxTokens      int

	EmbeddingModel   string
	EmbeddingBaseURL string
	EmbeddingAPIKey  string

	APIPort  string
	MCPPort  string
	MCPStdio bool

	ServerName      string
	ServerVersion   string
	ProtocolVersion string

	LogLevel  slog.Level
	LogFormat string
}

// fileConfig mirrors the optional YAML config file layout. Sections and keys
// follow the deployment config format; absent values fall through to the
// environment and built-in defaults.
type fileConfig struct {
	Qdrant struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"qdrant"`
	Vector struct {
		CollectionName string  `yaml:"collection_name"`
		EmbeddingModel string  `yaml:"embedding_model"`
		VectorSize     int     `yaml:"vector_size"`
		DistanceMetric string  `yaml:"distance_metric"`
		MaxTokens      int     `yaml:"max_tokens"`
		TopK           int     `yaml:"top_k"`
		MinScore       float64 `yaml:"min_score"`
	} `yaml:"vector"`
	API struct {
		Port int `yaml:"port"`
	} `yaml:"api"`
	MCP struct {
		ServerName      string `yaml:"server_name"`
		ServerVersion   string `yaml:"server_version"`
		Port            int    `yaml:"port"`
		ProtocolVersion string `yaml:"protocol_version"`
		StdioMode       bool   `yaml:"stdio_mode"`
	} `yaml:"mcp"`
	Logging struct {
		LogLevel string `yaml:"log_level"`
		Format   string `yaml:"format"`
	} `yaml:"logging"`
}

// Load resolves configuration with precedence: config file > environment
// variables > built-in defaults. The file path comes from QDRANT_MCP_CONFIG;
// a missing file is not an error, an unparsable one is.
// If a .env file exists in the current directory it is loaded first;
// environment variables already set take precedence over .env values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		QdrantHost:       getEnv("QDRANT_HOST", "localhost"),
		CollectionName:   getEnv("COLLECTION_NAME", "claude_vectors"),
		DistanceMetric:   getEnv("DISTANCE_METRIC", "cosine"),
		EmbeddingModel:   getEnv("EMBEDDING_MODEL", "all-MiniLM-L6-v2"),
		EmbeddingBaseURL: getEnv("EMBEDDING_BASE_URL", "http://localhost:8080"),
		EmbeddingAPIKey:  getEnv("EMBEDDING_API_KEY", "dummy-key"),
		APIPort:          getEnv("API_PORT", "8000"),
		MCPPort:          getEnv("MCP_PORT", "8001"),
		ServerName:       getEnv("MCP_SERVER_NAME", "qdrant-mcp"),
		ServerVersion:    getEnv("MCP_SERVER_VERSION", "1.0.0"),
		ProtocolVersion:  getEnv("MCP_PROTOCOL_VERSION", "2024-11-05"),
		LogFormat:        getEnv("LOG_FORMAT", "text"),
	}

	var err error
	if cfg.QdrantPort, err = getEnvInt("QDRANT_PORT", 6333); err != nil {
		return nil, err
	}
	if cfg.QdrantGRPCPort, err = getEnvInt("QDRANT_GRPC_PORT", 6334); err != nil {
		return nil, err
	}
	if cfg.VectorSize, err = getEnvInt("VECTOR_SIZE", 384); err != nil {
		return nil, err
	}
	if cfg.TopK, err = getEnvInt("TOP_K", 10); err != nil {
		return nil, err
	}
	if cfg.MaxTokens, err = getEnvInt("MAX_TOKENS", 512); err != nil {
		return nil, err
	}
	if cfg.MinScore, err = getEnvFloat("MIN_SCORE", 0.22); err != nil {
		return nil, err
	}
	cfg.MCPStdio = strings.EqualFold(getEnv("MCP_STDIO_MODE", "false"), "true")

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	if path := os.Getenv("QDRANT_MCP_CONFIG"); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFile overlays values from a YAML config file onto cfg. Only set fields
// override; zero values are treated as absent.
func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fc.Qdrant.Host != "" {
		cfg.QdrantHost = fc.Qdrant.Host
	}
	if fc.Qdrant.Port != 0 {
		cfg.QdrantPort = fc.Qdrant.Port
	}
	if fc.Qdrant.GRPCPort != 0 {
		cfg.QdrantGRPCPort = fc.Qdrant.GRPCPort
	}
	if fc.Vector.CollectionName != "" {
		cfg.CollectionName = fc.Vector.CollectionName
	}
	if fc.Vector.EmbeddingModel != "" {
		cfg.EmbeddingModel = fc.Vector.EmbeddingModel
	}
	if fc.Vector.VectorSize != 0 {
		cfg.VectorSize = fc.Vector.VectorSize
	}
	if fc.Vector.DistanceMetric != "" {
		cfg.DistanceMetric = fc.Vector.DistanceMetric
	}
	if fc.Vector.MaxTokens != 0 {
		cfg.MaxTokens = fc.Vector.MaxTokens
	}
	if fc.Vector.TopK != 0 {
		cfg.TopK = fc.Vector.TopK
	}
	if fc.Vector.MinScore != 0 {
		cfg.MinScore = fc.Vector.MinScore
	}
	if fc.API.Port != 0 {
		cfg.APIPort = strconv.Itoa(fc.API.Port)
	}
	if fc.MCP.ServerName != "" {
		cfg.ServerName = fc.MCP.ServerName
	}
	if fc.MCP.ServerVersion != "" {
		cfg.ServerVersion = fc.MCP.ServerVersion
	}
	if fc.MCP.Port != 0 {
		cfg.MCPPort = strconv.Itoa(fc.MCP.Port)
	}
	if fc.MCP.ProtocolVersion != "" {
		cfg.ProtocolVersion = fc.MCP.ProtocolVersion
	}
	if fc.MCP.StdioMode {
		cfg.MCPStdio = true
	}
	if fc.Logging.LogLevel != "" {
		level, err := parseLogLevel(fc.Logging.LogLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}
	if fc.Logging.Format != "" {
		cfg.LogFormat = fc.Logging.Format
	}
	return nil
}

// validate checks cross-field constraints after all layers are applied.
func validate(cfg *Config) error {
	if cfg.VectorSize <= 0 {
		return fmt.Errorf("VECTOR_SIZE must be greater than 0, got %d", cfg.VectorSize)
	}
	if cfg.TopK <= 0 {
		return fmt.Errorf("TOP_K must be greater than 0, got %d", cfg.TopK)
	}
	switch cfg.DistanceMetric {
	case "cosine", "euclidean", "dot":
	default:
		return fmt.Errorf("unsupported distance metric: %q (want cosine, euclidean or dot)", cfg.DistanceMetric)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be %q or %q, got %q", "text", "json", cfg.LogFormat)
	}
	return nil
}

// parseLogLevel maps a config string to a slog level.
func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %q", s)
	}
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt parses an integer environment variable or returns a default value.
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}

// getEnvFloat parses a float environment variable or returns a default value.
func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return f, nil
}
