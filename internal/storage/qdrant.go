// Package storage persists chunk records in Qdrant and serves similarity
// queries over them.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/bull/ragserver/internal/extract"
)

// pointNamespace seeds UUIDv5 derivation of point ids from logical record
// ids. Stable across runs so re-ingesting a source overwrites its points.
var pointNamespace = uuid.MustParse("5f2d1c55-40ab-4a4e-9e87-3c1d26e9188f")

// Store wraps the Qdrant client with collection management and health
// checks for a single collection.
type Store struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

// NewStore connects to Qdrant and verifies it is reachable, retrying with
// exponential backoff for up to 30 seconds before giving up. This is the
// only retry loop in the system; per-record operations fail immediately.
func NewStore(host string, port int, collection string, dimension int) (*Store, error) {
	if collection == "" {
		collection = DefaultCollection
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("storage: dimension must be positive, got %d", dimension)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	s := &Store{client: client, collection: collection, dimension: dimension}

	if err := s.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
	}
	return s, nil
}

func (s *Store) healthCheckWithRetry(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(b, ctx))
}

// Health performs a single health check.
func (s *Store) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// Collection returns the collection name the store writes to.
func (s *Store) Collection() string { return s.collection }

// EnsureCollection creates the collection with the configured vector
// dimension and cosine distance if it does not exist. Idempotent.
func (s *Store) EnsureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	for _, name := range collections {
		if name == s.collection {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	// Without keyword indexes, source and content-type filters scan the
	// whole collection.
	for _, field := range []string{"source", "content_type"} {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("create index for field %s: %w", field, err)
		}
	}
	return nil
}

// PointID derives the deterministic Qdrant point id for a logical record
// id. The mapping is stable, so the same {source}_{chunk_id} always lands
// on the same point and collisions overwrite silently.
func PointID(recordID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(recordID)).String()
}

// Add upserts a single record. The call is synchronous and not retried.
func (s *Store) Add(ctx context.Context, rec *Record) error {
	if len(rec.Embedding) != s.dimension {
		return fmt.Errorf("%w: record %s has %d dimensions, expected %d",
			ErrDimensionMismatch, rec.ID, len(rec.Embedding), s.dimension)
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(PointID(rec.ID)),
		Vectors: qdrant.NewVectors(rec.Embedding...),
		Payload: qdrant.NewValueMap(map[string]any{
			"doc_id":            rec.ID,
			"document":          rec.Document,
			"source":            rec.Metadata.Source,
			"chunk_id":          int64(rec.Metadata.ChunkID),
			"content_type":      string(rec.Metadata.ContentType),
			"chunk_size":        int64(rec.Metadata.ChunkSize),
			"extraction_method": string(rec.Metadata.ExtractionMethod),
			"file_path":         rec.Metadata.FilePath,
		}),
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("upsert %s: %w", rec.ID, err)
	}
	return nil
}

// Query runs similarity search and returns the top limit records by
// descending score.
func (s *Store) Query(ctx context.Context, embedding []float32, limit int) ([]SearchResult, error) {
	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(embedding), s.dimension)
	}

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	results := make([]SearchResult, 0, len(points))
	for _, point := range points {
		payload := point.Payload
		results = append(results, SearchResult{
			ID:       payload["doc_id"].GetStringValue(),
			Document: payload["document"].GetStringValue(),
			Score:    float64(point.Score),
			Metadata: extract.Metadata{
				Source:           payload["source"].GetStringValue(),
				ChunkID:          int(payload["chunk_id"].GetIntegerValue()),
				ContentType:      extract.ContentType(payload["content_type"].GetStringValue()),
				ChunkSize:        int(payload["chunk_size"].GetIntegerValue()),
				ExtractionMethod: extract.ExtractionMethod(payload["extraction_method"].GetStringValue()),
				FilePath:         payload["file_path"].GetStringValue(),
			},
		})
	}
	return results, nil
}

// Count returns the number of stored points.
func (s *Store) Count(ctx context.Context) (uint64, error) {
	collection, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return 0, fmt.Errorf("get collection: %w", err)
	}
	return collection.GetPointsCount(), nil
}

// Close closes the client connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
