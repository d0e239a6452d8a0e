package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/mock/gomock"

	"qdrant-gateway/internal/config"
	embmocks "qdrant-gateway/internal/embedding/mocks"
	"qdrant-gateway/internal/vectorstore"
	storemocks "qdrant-gateway/internal/vectorstore/mocks"
)

// fakeTokenCounter counts whitespace-separated words; good enough for
// asserting payload enrichment without loading a BPE encoding.
type fakeTokenCounter struct{}

func (fakeTokenCounter) Count(text string) int {
	return len(strings.Fields(text))
}

func testConfig() *config.Config {
	return &config.Config{
		CollectionName: "claude_vectors",
		VectorSize:     384,
		DistanceMetric: "cosine",
		TopK:           10,
		MinScore:       0.22,
	}
}

func newTestDispatcher(t *testing.T) (Dispatcher, *storemocks.MockVectorStore, *embmocks.MockEmbedder) {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := storemocks.NewMockVectorStore(ctrl)
	embedder := embmocks.NewMockEmbedder(ctrl)
	return NewDispatcher(store, embedder, fakeTokenCounter{}, testConfig()), store, embedder
}

func TestDispatcher_Store_EmbedsContent(t *testing.T) {
	d, store, embedder := newTestDispatcher(t)
	ctx := context.Background()

	vec := make([]float32, 384)
	embedder.EXPECT().
		EmbedTexts(gomock.Any(), []string{"hello world"}).
		Return([][]float32{vec}, nil)

	store.EXPECT().
		EnsureCollection(gomock.Any(), "claude_vectors", 384, "cosine").
		Return(nil)

	store.EXPECT().
		Upsert(gomock.Any(), "claude_vectors", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, points []vectorstore.Point) ([]string, error) {
			if len(points) != 1 {
				t.Fatalf("Upsert got %d points, want 1", len(points))
			}
			p := points[0]
			if _, err := uuid.Parse(p.ID); err != nil {
				t.Errorf("generated ID %q is not a valid UUID", p.ID)
			}
			if len(p.Vector) != 384 {
				t.Errorf("stored vector has length %d, want 384", len(p.Vector))
			}
			if p.Payload["content"] != "hello world" {
				t.Errorf("payload content = %v, want hello world", p.Payload["content"])
			}
			if p.Payload["tokens"] != 2 {
				t.Errorf("payload tokens = %v, want 2", p.Payload["tokens"])
			}
			if p.Payload["source"] != "test" {
				t.Errorf("payload source = %v, want test", p.Payload["source"])
			}
			return []string{p.ID}, nil
		})

	result, err := d.Store(ctx, StoreArgs{
		Content:  "hello world",
		Metadata: map[string]any{"source": "test"},
	})
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if result.Collection != "claude_vectors" {
		t.Errorf("Store() collection = %v, want claude_vectors", result.Collection)
	}
	if result.ID == "" {
		t.Error("Store() returned empty ID")
	}
}

func TestDispatcher_Store_ExplicitVectorSkipsEmbedding(t *testing.T) {
	d, store, _ := newTestDispatcher(t)
	ctx := context.Background()

	// No EXPECT on the embedder: any embedding call fails the test.
	store.EXPECT().
		EnsureCollection(gomock.Any(), "custom", 384, "cosine").
		Return(nil)
	store.EXPECT().
		Upsert(gomock.Any(), "custom", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, points []vectorstore.Point) ([]string, error) {
			return []string{points[0].ID}, nil
		})

	id := uuid.NewString()
	result, err := d.Store(ctx, StoreArgs{
		ID:         id,
		Vector:     make([]float32, 384),
		Collection: "custom",
	})
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if result.ID != id {
		t.Errorf("Store() ID = %v, want %v", result.ID, id)
	}
}

func TestDispatcher_Store_Validation(t *testing.T) {
	tests := []struct {
		name string
		args StoreArgs
	}{
		{
			name: "no content and no vector",
			args: StoreArgs{Metadata: map[string]any{"k": "v"}},
		},
		{
			name: "invalid id",
			args: StoreArgs{ID: "not-a-uuid", Content: "hello"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// No EXPECTs: validation must fail before any adapter call.
			d, _, _ := newTestDispatcher(t)

			_, err := d.Store(context.Background(), tt.args)
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Errorf("Store() error = %v, want ValidationError", err)
			}
		})
	}
}

func TestDispatcher_Store_EmbeddingFailure(t *testing.T) {
	d, _, embedder := newTestDispatcher(t)

	embedder.EXPECT().
		EmbedTexts(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("model not loaded"))

	_, err := d.Store(context.Background(), StoreArgs{Content: "hello"})
	if !errors.Is(err, ErrEmbedding) {
		t.Errorf("Store() error = %v, want ErrEmbedding", err)
	}
}

func TestDispatcher_Store_UpsertFailure(t *testing.T) {
	d, store, embedder := newTestDispatcher(t)

	embedder.EXPECT().
		EmbedTexts(gomock.Any(), gomock.Any()).
		Return([][]float32{make([]float32, 384)}, nil)
	store.EXPECT().
		EnsureCollection(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil)
	store.EXPECT().
		Upsert(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("write failed"))

	_, err := d.Store(context.Background(), StoreArgs{Content: "hello"})
	if !errors.Is(err, ErrStore) {
		t.Errorf("Store() error = %v, want ErrStore", err)
	}
}

func TestDispatcher_StoreBatch_SingleEmbeddingCall(t *testing.T) {
	d, store, embedder := newTestDispatcher(t)
	ctx := context.Background()

	// Two points need embedding, one carries its own vector; exactly one
	// backend call for the two pending texts, in order.
	embedder.EXPECT().
		EmbedTexts(gomock.Any(), []string{"first", "third"}).
		Return([][]float32{make([]float32, 384), make([]float32, 384)}, nil)
	store.EXPECT().
		EnsureCollection(gomock.Any(), "claude_vectors", 384, "cosine").
		Return(nil)
	store.EXPECT().
		Upsert(gomock.Any(), "claude_vectors", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, points []vectorstore.Point) ([]string, error) {
			ids := make([]string, len(points))
			for i, p := range points {
				if len(p.Vector) != 384 {
					t.Errorf("point %d vector length = %d, want 384", i, len(p.Vector))
				}
				ids[i] = p.ID
			}
			return ids, nil
		})

	ids, err := d.StoreBatch(ctx, "", []PointArgs{
		{Content: "first"},
		{Vector: make([]float32, 384), Payload: map[string]any{"kind": "raw"}},
		{Content: "third"},
	})
	if err != nil {
		t.Fatalf("StoreBatch() error = %v", err)
	}
	if len(ids) != 3 {
		t.Errorf("StoreBatch() returned %d ids, want 3", len(ids))
	}
}

func TestDispatcher_StoreBatch_EmptyBatch(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	_, err := d.StoreBatch(context.Background(), "", nil)
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Errorf("StoreBatch() error = %v, want ValidationError", err)
	}
}

func TestDispatcher_Find_EmptyQueryMakesNoCalls(t *testing.T) {
	// No EXPECTs: the embedder and store must receive zero calls.
	d, _, _ := newTestDispatcher(t)

	_, err := d.Find(context.Background(), FindArgs{Query: ""})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Errorf("Find() error = %v, want ValidationError", err)
	}
}

func TestDispatcher_Find_DefaultsFromSettings(t *testing.T) {
	d, store, embedder := newTestDispatcher(t)
	vec := make([]float32, 384)

	embedder.EXPECT().
		EmbedText(gomock.Any(), "machine learning").
		Return(vec, nil)
	store.EXPECT().
		Search(gomock.Any(), "claude_vectors", vec, 10, 0.22).
		Return([]vectorstore.SearchHit{}, nil)

	hits, err := d.Find(context.Background(), FindArgs{Query: "machine learning"})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("Find() returned %d hits, want 0", len(hits))
	}
}

func TestDispatcher_Find_ExplicitArguments(t *testing.T) {
	d, store, embedder := newTestDispatcher(t)
	vec := make([]float32, 384)
	threshold := 0.5

	embedder.EXPECT().
		EmbedText(gomock.Any(), "machine learning").
		Return(vec, nil)
	store.EXPECT().
		Search(gomock.Any(), "papers", vec, 5, 0.5).
		Return([]vectorstore.SearchHit{
			{ID: "a", Score: 0.95, Payload: map[string]any{"content": "one"}},
			{ID: "b", Score: 0.85, Payload: map[string]any{"content": "two"}},
		}, nil)

	hits, err := d.Find(context.Background(), FindArgs{
		Query:          "machine learning",
		Collection:     "papers",
		Limit:          5,
		ScoreThreshold: &threshold,
	})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("Find() returned %d hits, want 2", len(hits))
	}
	// Hit order is the store's native descending-score order, untouched.
	if hits[0].ID != "a" || hits[1].ID != "b" {
		t.Errorf("Find() hit order = %v, %v; want a, b", hits[0].ID, hits[1].ID)
	}
}

func TestDispatcher_Find_EmbeddingFailure(t *testing.T) {
	d, _, embedder := newTestDispatcher(t)

	embedder.EXPECT().
		EmbedText(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("inference failed"))

	_, err := d.Find(context.Background(), FindArgs{Query: "anything"})
	if !errors.Is(err, ErrEmbedding) {
		t.Errorf("Find() error = %v, want ErrEmbedding", err)
	}
}

func TestDispatcher_ListCollections(t *testing.T) {
	d, store, _ := newTestDispatcher(t)

	store.EXPECT().
		ListCollections(gomock.Any()).
		Return([]string{"claude_vectors", "papers"}, nil)

	names, err := d.ListCollections(context.Background())
	if err != nil {
		t.Fatalf("ListCollections() error = %v", err)
	}
	if len(names) != 2 {
		t.Errorf("ListCollections() returned %d names, want 2", len(names))
	}
}

func TestDispatcher_CreateCollection(t *testing.T) {
	t.Run("empty name fails validation", func(t *testing.T) {
		d, _, _ := newTestDispatcher(t)

		err := d.CreateCollection(context.Background(), CreateCollectionArgs{})
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Errorf("CreateCollection() error = %v, want ValidationError", err)
		}
	})

	t.Run("vector size defaults from settings", func(t *testing.T) {
		d, store, _ := newTestDispatcher(t)

		store.EXPECT().
			CreateCollection(gomock.Any(), "papers", 384, "cosine").
			Return(nil)

		if err := d.CreateCollection(context.Background(), CreateCollectionArgs{Name: "papers"}); err != nil {
			t.Fatalf("CreateCollection() error = %v", err)
		}
	})

	t.Run("existing collection surfaces conflict", func(t *testing.T) {
		d, store, _ := newTestDispatcher(t)

		store.EXPECT().
			CreateCollection(gomock.Any(), "papers", 384, "cosine").
			Return(vectorstore.ErrCollectionExists)

		err := d.CreateCollection(context.Background(), CreateCollectionArgs{Name: "papers"})
		if !errors.Is(err, vectorstore.ErrCollectionExists) {
			t.Errorf("CreateCollection() error = %v, want ErrCollectionExists", err)
		}
	})
}

func TestDispatcher_GetCollection(t *testing.T) {
	t.Run("passes through info", func(t *testing.T) {
		d, store, _ := newTestDispatcher(t)

		store.EXPECT().
			GetCollection(gomock.Any(), "papers").
			Return(&vectorstore.CollectionInfo{Name: "papers", VectorSize: 384}, nil)

		info, err := d.GetCollection(context.Background(), "papers")
		if err != nil {
			t.Fatalf("GetCollection() error = %v", err)
		}
		if info.Name != "papers" {
			t.Errorf("GetCollection() name = %v, want papers", info.Name)
		}
	})

	t.Run("passes through not found", func(t *testing.T) {
		d, store, _ := newTestDispatcher(t)

		store.EXPECT().
			GetCollection(gomock.Any(), "missing").
			Return(nil, vectorstore.ErrCollectionNotFound)

		_, err := d.GetCollection(context.Background(), "missing")
		if !errors.Is(err, vectorstore.ErrCollectionNotFound) {
			t.Errorf("GetCollection() error = %v, want ErrCollectionNotFound", err)
		}
	})
}
