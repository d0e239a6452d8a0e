package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"qdrant-gateway/internal/contextutil"
)

// QdrantStore implements VectorStore using Qdrant over gRPC.
type QdrantStore struct {
	client *qdrant.Client
}

// NewQdrantStore creates a new Qdrant vector store client.
// port is the gRPC port (typically 6334, next to the 6333 HTTP port).
func NewQdrantStore(host string, port int) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantStore{
		client: client,
	}, nil
}

// distanceFromMetric maps a configured metric name to the Qdrant distance enum.
// Unknown values fall back to cosine, matching the configured default.
func distanceFromMetric(metric string) qdrant.Distance {
	switch metric {
	case "euclidean":
		return qdrant.Distance_Euclid
	case "dot":
		return qdrant.Distance_Dot
	default:
		return qdrant.Distance_Cosine
	}
}

// metricFromDistance maps the Qdrant distance enum back to a metric name.
func metricFromDistance(d qdrant.Distance) string {
	switch d {
	case qdrant.Distance_Euclid:
		return "euclidean"
	case qdrant.Distance_Dot:
		return "dot"
	case qdrant.Distance_Cosine:
		return "cosine"
	default:
		return "unknown"
	}
}

// GetCollection returns collection info, or ErrCollectionNotFound.
func (s *QdrantStore) GetCollection(ctx context.Context, name string) (*CollectionInfo, error) {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("collection %q: %w", name, ErrCollectionNotFound)
	}

	info, err := s.client.GetCollectionInfo(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection info: %w", err)
	}

	result := &CollectionInfo{Name: name, Distance: "unknown", Status: "unknown"}
	if config := info.Config; config != nil && config.Params != nil {
		if vectorsConfig := config.Params.GetVectorsConfig(); vectorsConfig != nil {
			if params := vectorsConfig.GetParams(); params != nil {
				result.VectorSize = int(params.Size)
				result.Distance = metricFromDistance(params.Distance)
			}
		}
	}
	if info.PointsCount != nil {
		result.PointsCount = int(*info.PointsCount)
	}
	if info.Status != 0 {
		result.Status = info.Status.String()
	}
	return result, nil
}

// CreateCollection creates a new collection. Not idempotent: an existing
// collection with the same name is reported as ErrCollectionExists.
func (s *QdrantStore) CreateCollection(ctx context.Context, name string, vectorSize int, distance string) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		return fmt.Errorf("collection %q: %w", name, ErrCollectionExists)
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(vectorSize),
			Distance: distanceFromMetric(distance),
		}),
	})
	if err != nil {
		// A concurrent creation between the existence check and the create
		// call surfaces here; report it as the conflict it is.
		if exists, checkErr := s.client.CollectionExists(ctx, name); checkErr == nil && exists {
			return fmt.Errorf("collection %q: %w", name, ErrCollectionExists)
		}
		return fmt.Errorf("failed to create collection: %w", err)
	}

	logger.InfoContext(ctx, "collection created", "collection", name, "vector_size", vectorSize, "distance", distance)
	return nil
}

// EnsureCollection creates the collection if it does not exist. A concurrent
// create racing with this call is treated as success.
func (s *QdrantStore) EnsureCollection(ctx context.Context, name string, vectorSize int, distance string) error {
	_, err := s.GetCollection(ctx, name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrCollectionNotFound) {
		return err
	}

	if err := s.CreateCollection(ctx, name, vectorSize, distance); err != nil {
		if errors.Is(err, ErrCollectionExists) {
			return nil
		}
		return err
	}
	return nil
}

// Upsert inserts or updates points in the collection.
func (s *QdrantStore) Upsert(ctx context.Context, collection string, points []Point) ([]string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(points) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(points))
	qdrantPoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, point := range points {
		qdrantPoint := &qdrant.PointStruct{
			Id:      qdrant.NewID(point.ID),
			Vectors: qdrant.NewVectors(point.Vector...),
		}

		if len(point.Payload) > 0 {
			qdrantPoint.Payload = qdrant.NewValueMap(point.Payload)
		}

		ids = append(ids, point.ID)
		qdrantPoints = append(qdrantPoints, qdrantPoint)
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         qdrantPoints,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to upsert points", "collection", collection, "count", len(points), "error", err)
		return nil, fmt.Errorf("failed to upsert points: %w", err)
	}

	logger.InfoContext(ctx, "upserted points", "collection", collection, "count", len(points))
	return ids, nil
}

// Search performs a similarity search against the collection.
func (s *QdrantStore) Search(ctx context.Context, collection string, vector []float32, limit int, scoreThreshold float64) ([]SearchHit, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than 0")
	}

	qdrantLimit := uint64(limit)
	threshold := float32(scoreThreshold)
	queryReq := &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &qdrantLimit,
		ScoreThreshold: &threshold,
		WithPayload:    qdrant.NewWithPayload(true),
	}

	scoredPoints, err := s.client.Query(ctx, queryReq)
	if err != nil {
		logger.ErrorContext(ctx, "failed to search points", "collection", collection, "limit", limit, "error", err)
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	hits := make([]SearchHit, 0, len(scoredPoints))
	for _, result := range scoredPoints {
		pointID := ""
		if result.Id != nil {
			pointID = result.Id.GetUuid()
		}

		payload := make(map[string]any)
		if result.Payload != nil {
			payload = convertPayloadToMap(result.Payload)
		}

		hits = append(hits, SearchHit{
			ID:      pointID,
			Score:   result.Score,
			Payload: payload,
		})
	}

	logger.InfoContext(ctx, "search completed", "collection", collection, "limit", limit, "results", len(hits))
	return hits, nil
}

// ListCollections returns the names of all collections.
func (s *QdrantStore) ListCollections(ctx context.Context) ([]string, error) {
	names, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return names, nil
}

// convertPayloadToMap converts a Qdrant payload to map[string]any.
func convertPayloadToMap(payload map[string]*qdrant.Value) map[string]any {
	result := make(map[string]any, len(payload))
	for k, v := range payload {
		if v == nil {
			continue
		}
		result[k] = convertValue(v)
	}
	return result
}

// convertValue converts a Qdrant Value to a Go any type.
func convertValue(v *qdrant.Value) any {
	switch val := v.Kind.(type) {
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_ListValue:
		list := make([]any, len(val.ListValue.Values))
		for i, item := range val.ListValue.Values {
			list[i] = convertValue(item)
		}
		return list
	case *qdrant.Value_StructValue:
		return convertPayloadToMap(val.StructValue.Fields)
	default:
		return nil
	}
}
