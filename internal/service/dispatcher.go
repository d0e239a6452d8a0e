package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_dispatcher.go -package=mocks -mock_names=Dispatcher=MockDispatcher qdrant-gateway/internal/service Dispatcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"qdrant-gateway/internal/config"
	"qdrant-gateway/internal/contextutil"
	"qdrant-gateway/internal/embedding"
	"qdrant-gateway/internal/vectorstore"
)

// StoreArgs carries one store operation. Vector may be omitted when Content
// is set; the dispatcher embeds the content in that case.
type StoreArgs struct {
	ID         string
	Content    string
	Vector     []float32
	Metadata   map[string]any
	Collection string
}

// StoreResult is the protocol-neutral result of a store operation.
type StoreResult struct {
	ID         string
	Collection string
}

// PointArgs is one point of a batch upsert.
type PointArgs struct {
	ID      string
	Content string
	Vector  []float32
	Payload map[string]any
}

// FindArgs carries one semantic search. Zero Limit and nil ScoreThreshold
// resolve to the configured defaults.
type FindArgs struct {
	Query          string
	Collection     string
	Limit          int
	ScoreThreshold *float64
}

// CreateCollectionArgs carries one explicit collection creation.
type CreateCollectionArgs struct {
	Name       string
	VectorSize int
	Distance   string
}

// Dispatcher is the protocol-neutral operation core shared by the REST and
// MCP front-ends. Each call is independent; no state is kept between calls.
type Dispatcher interface {
	// Store embeds content if no vector is given, ensures the target
	// collection exists, and upserts a single point.
	Store(ctx context.Context, args StoreArgs) (StoreResult, error)
	// StoreBatch processes a batch of points through the same embed-if-needed
	// rule. The whole batch fails together.
	StoreBatch(ctx context.Context, collection string, points []PointArgs) ([]string, error)
	// Find embeds the query and searches the collection. Zero hits is a
	// normal result.
	Find(ctx context.Context, args FindArgs) ([]vectorstore.SearchHit, error)
	// ListCollections returns all collection names.
	ListCollections(ctx context.Context) ([]string, error)
	// CreateCollection creates a collection explicitly. Unlike the implicit
	// creation done by Store, it fails if the collection already exists.
	CreateCollection(ctx context.Context, args CreateCollectionArgs) error
	// GetCollection returns info about a collection.
	GetCollection(ctx context.Context, name string) (*vectorstore.CollectionInfo, error)
}

// dispatcher implements Dispatcher.
type dispatcher struct {
	store    vectorstore.VectorStore
	embedder embedding.Embedder
	tokens   TokenCounter

	defaultCollection string
	vectorSize        int
	distanceMetric    string
	topK              int
	minScore          float64
}

// NewDispatcher creates a Dispatcher with per-request defaults taken from the
// resolved configuration.
func NewDispatcher(store vectorstore.VectorStore, embedder embedding.Embedder, tokens TokenCounter, cfg *config.Config) Dispatcher {
	return &dispatcher{
		store:             store,
		embedder:          embedder,
		tokens:            tokens,
		defaultCollection: cfg.CollectionName,
		vectorSize:        cfg.VectorSize,
		distanceMetric:    cfg.DistanceMetric,
		topK:              cfg.TopK,
		minScore:          cfg.MinScore,
	}
}

// Store embeds content when needed and upserts a single point, creating the
// target collection on first write.
func (d *dispatcher) Store(ctx context.Context, args StoreArgs) (StoreResult, error) {
	collection := args.Collection
	if collection == "" {
		collection = d.defaultCollection
	}

	point := PointArgs{
		ID:      args.ID,
		Content: args.Content,
		Vector:  args.Vector,
		Payload: args.Metadata,
	}
	ids, err := d.StoreBatch(ctx, collection, []PointArgs{point})
	if err != nil {
		return StoreResult{}, err
	}
	return StoreResult{ID: ids[0], Collection: collection}, nil
}

// StoreBatch validates, embeds and upserts a batch of points. Embeddings for
// all points missing a vector are requested in a single backend call; any
// failure fails the whole batch with no partial write.
func (d *dispatcher) StoreBatch(ctx context.Context, collection string, points []PointArgs) ([]string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if collection == "" {
		collection = d.defaultCollection
	}
	if len(points) == 0 {
		return nil, &ValidationError{Field: "points", Message: "no points provided"}
	}

	prepared := make([]vectorstore.Point, len(points))
	var pendingTexts []string
	var pendingIdx []int
	for i, point := range points {
		if point.Content == "" && len(point.Vector) == 0 {
			return nil, &ValidationError{Field: "content", Message: "no content provided"}
		}

		id := point.ID
		if id == "" {
			id = uuid.NewString()
		} else if _, err := uuid.Parse(id); err != nil {
			return nil, &ValidationError{Field: "id", Message: fmt.Sprintf("invalid id: %q is not a valid UUID", point.ID)}
		}

		payload := make(map[string]any, len(point.Payload)+2)
		for k, v := range point.Payload {
			payload[k] = v
		}
		if point.Content != "" {
			payload["content"] = point.Content
			payload["tokens"] = d.tokens.Count(point.Content)
		}

		prepared[i] = vectorstore.Point{ID: id, Vector: point.Vector, Payload: payload}
		if len(point.Vector) == 0 {
			pendingTexts = append(pendingTexts, point.Content)
			pendingIdx = append(pendingIdx, i)
		}
	}

	if len(pendingTexts) > 0 {
		vectors, err := d.embedder.EmbedTexts(ctx, pendingTexts)
		if err != nil {
			logger.ErrorContext(ctx, "failed to embed content", "collection", collection, "count", len(pendingTexts), "error", err)
			return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
		}
		for i, idx := range pendingIdx {
			prepared[idx].Vector = vectors[i]
		}
	}

	if err := d.store.EnsureCollection(ctx, collection, d.vectorSize, d.distanceMetric); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}

	ids, err := d.store.Upsert(ctx, collection, prepared)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}

	logger.InfoContext(ctx, "stored points", "collection", collection, "count", len(ids))
	return ids, nil
}

// Find embeds the query and runs a similarity search. Defaults for
// collection, limit and score threshold are resolved once, up front.
func (d *dispatcher) Find(ctx context.Context, args FindArgs) ([]vectorstore.SearchHit, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if args.Query == "" {
		return nil, &ValidationError{Field: "query", Message: "no query provided"}
	}

	collection := args.Collection
	if collection == "" {
		collection = d.defaultCollection
	}
	limit := args.Limit
	if limit <= 0 {
		limit = d.topK
	}
	scoreThreshold := d.minScore
	if args.ScoreThreshold != nil {
		scoreThreshold = *args.ScoreThreshold
	}

	vector, err := d.embedder.EmbedText(ctx, args.Query)
	if err != nil {
		logger.ErrorContext(ctx, "failed to embed query", "collection", collection, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}

	hits, err := d.store.Search(ctx, collection, vector, limit, scoreThreshold)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}

	logger.InfoContext(ctx, "search completed", "collection", collection, "limit", limit, "results", len(hits))
	return hits, nil
}

// ListCollections returns all collection names. An empty list is a normal result.
func (d *dispatcher) ListCollections(ctx context.Context) ([]string, error) {
	names, err := d.store.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return names, nil
}

// CreateCollection creates a collection explicitly. It fails loudly on
// conflict; the implicit auto-create in Store stays idempotent.
func (d *dispatcher) CreateCollection(ctx context.Context, args CreateCollectionArgs) error {
	if args.Name == "" {
		return &ValidationError{Field: "name", Message: "no collection name provided"}
	}

	vectorSize := args.VectorSize
	if vectorSize <= 0 {
		vectorSize = d.vectorSize
	}
	distance := args.Distance
	if distance == "" {
		distance = d.distanceMetric
	}

	if err := d.store.CreateCollection(ctx, args.Name, vectorSize, distance); err != nil {
		if errors.Is(err, vectorstore.ErrCollectionExists) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	return nil
}

// GetCollection returns info about a collection, passing through
// ErrCollectionNotFound for unknown names.
func (d *dispatcher) GetCollection(ctx context.Context, name string) (*vectorstore.CollectionInfo, error) {
	info, err := d.store.GetCollection(ctx, name)
	if err != nil {
		if errors.Is(err, vectorstore.ErrCollectionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return info, nil
}
