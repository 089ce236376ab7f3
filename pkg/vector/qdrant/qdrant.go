// Package qdrant provides a Qdrant-backed vector driver over the gRPC
// client API.
package qdrant

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/papercomputeco/mural/pkg/vector"
)

const defaultCollection = "mural_messages"

// Driver implements vector.Driver using a Qdrant collection. Message ids map
// directly to numeric point ids.
type Driver struct {
	client     *qdrant.Client
	collection string
	logger     *zap.Logger
}

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Host is the Qdrant gRPC host.
	Host string

	// Port is the Qdrant gRPC port (typically 6334).
	Port int

	// Collection is the collection name. Defaults to "mural_messages".
	Collection string

	// Dimensions is the embedding vector size, required to create the
	// collection on first use.
	Dimensions uint
}

// NewDriver connects to Qdrant and ensures the collection exists.
func NewDriver(ctx context.Context, c Config, logger *zap.Logger) (*Driver, error) {
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("qdrant embedding dimensions cannot be 0, must be configured")
	}

	collection := c.Collection
	if collection == "" {
		collection = defaultCollection
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: c.Host,
		Port: c.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}

	exists, err := client.CollectionExists(ctx, collection)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: checking collection: %v", vector.ErrConnection, err)
	}

	if !exists {
		err := client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(c.Dimensions),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("creating collection %q: %w", collection, err)
		}
	}

	logger.Info("qdrant vector driver initialized",
		zap.String("host", c.Host),
		zap.Int("port", c.Port),
		zap.String("collection", collection),
		zap.Uint("dimensions", c.Dimensions),
	)

	return &Driver{
		client:     client,
		collection: collection,
		logger:     logger,
	}, nil
}

// Add stores documents with their embeddings. Upserts by point id, so an
// existing document with the same id is updated.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(docs))
	for i, doc := range docs {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(doc.ID)),
			Vectors: qdrant.NewVectors(doc.Embedding...),
		}
	}

	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}

	d.logger.Debug("added documents to qdrant",
		zap.Int("count", len(docs)),
	)

	return nil
}

// Query finds the topK most similar documents to the given embedding.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	limit := uint64(topK)
	scored, err := d.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: d.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          &limit,
	})
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}

	results := make([]vector.QueryResult, 0, len(scored))
	for _, p := range scored {
		results = append(results, vector.QueryResult{
			Document: vector.Document{ID: int64(p.GetId().GetNum())},
			Score:    p.GetScore(),
		})
	}

	return results, nil
}

// Get retrieves documents by message id. Missing ids are skipped.
func (d *Driver) Get(ctx context.Context, ids []int64) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewIDNum(uint64(id))
	}

	points, err := d.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: d.collection,
		Ids:            pointIDs,
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("retrieving points: %w", err)
	}

	docs := make([]vector.Document, 0, len(points))
	for _, p := range points {
		docs = append(docs, vector.Document{
			ID:        int64(p.GetId().GetNum()),
			Embedding: p.GetVectors().GetVector().GetData(),
		})
	}

	return docs, nil
}

// Delete removes documents by message id.
func (d *Driver) Delete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewIDNum(uint64(id))
	}

	_, err := d.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: d.collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("deleting points: %w", err)
	}

	return nil
}

// Close closes the underlying gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

var _ vector.Driver = (*Driver)(nil)
