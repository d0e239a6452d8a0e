package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks qdrant-gateway/internal/vectorstore VectorStore

import "context"

// Point represents a vector point with its payload.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// SearchHit represents a single similarity search result.
type SearchHit struct {
	ID      string
	Score   float32
	Payload map[string]any
}

// CollectionInfo describes an existing collection.
type CollectionInfo struct {
	Name        string
	VectorSize  int
	Distance    string
	PointsCount int
	Status      string
}

// VectorStore defines the contract against the vector database. Every call
// maps 1:1 to a remote call; there is no local caching.
type VectorStore interface {
	// GetCollection returns collection info, or ErrCollectionNotFound.
	GetCollection(ctx context.Context, name string) (*CollectionInfo, error)

	// CreateCollection creates a new collection. Returns ErrCollectionExists
	// if a collection with that name already exists.
	CreateCollection(ctx context.Context, name string, vectorSize int, distance string) error

	// EnsureCollection creates the collection if it does not exist. Idempotent:
	// a concurrent create by another caller is treated as success.
	EnsureCollection(ctx context.Context, name string, vectorSize int, distance string) error

	// Upsert inserts or updates points and returns their IDs. The whole call
	// fails if the underlying write fails.
	Upsert(ctx context.Context, collection string, points []Point) ([]string, error)

	// Search performs a similarity search. An empty result set is not an error.
	Search(ctx context.Context, collection string, vector []float32, limit int, scoreThreshold float64) ([]SearchHit, error)

	// ListCollections returns the names of all collections.
	ListCollections(ctx context.Context) ([]string, error)
}
