// Package qdrant provides a Qdrant vector database driver implementation
// over the official gRPC client.
package qdrant

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/cartableai/cartable/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection name for storing
	// document chunk embeddings.
	DefaultCollectionName = "cartable"

	// DefaultTarget is the default Qdrant gRPC address.
	DefaultTarget = "localhost:6334"
)

// Driver implements vector.Driver against a Qdrant instance.
//
// Qdrant reports cosine similarity (higher = more similar); the driver
// converts each hit to distance = 1 - score so the relevance gate sees the
// same lower-is-better ordering as the other backends. The gate threshold
// must be calibrated accordingly when this backend is selected.
type Driver struct {
	client         *qdrant.Client
	collectionName string
	logger         *zap.Logger
}

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Target is the Qdrant gRPC address as host:port.
	// Defaults to DefaultTarget if empty.
	Target string

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// Dimensions is the embedding vector size, used when the collection
	// has to be created.
	Dimensions uint64
}

// NewDriver connects to Qdrant and ensures the configured collection exists.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	target := c.Target
	if target == "" {
		target = DefaultTarget
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}

	if c.Dimensions == 0 {
		return nil, fmt.Errorf("qdrant embedding dimensions cannot be 0, must be configured")
	}

	host, port, err := splitTarget(target)
	if err != nil {
		return nil, fmt.Errorf("parsing qdrant target %q: %w", target, err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}

	d := &Driver{
		client:         client,
		collectionName: collectionName,
		logger:         logger,
	}

	if err := d.ensureCollection(context.Background(), c.Dimensions); err != nil {
		return nil, err
	}

	logger.Info("connected to Qdrant",
		zap.String("target", target),
		zap.String("collection", collectionName),
	)

	return d, nil
}

func splitTarget(target string) (string, int, error) {
	target = strings.TrimPrefix(target, "http://")
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, err
	}
	return host, port, nil
}

func (d *Driver) ensureCollection(ctx context.Context, dimensions uint64) error {
	exists, err := d.client.CollectionExists(ctx, d.collectionName)
	if err != nil {
		return fmt.Errorf("%w: checking collection: %v", vector.ErrConnection, err)
	}
	if exists {
		return nil
	}

	err = d.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: d.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dimensions,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %q: %w", d.collectionName, err)
	}

	return nil
}

// Upsert stores documents with their embeddings, text, and source payload.
func (d *Driver) Upsert(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(docs))
	for i, doc := range docs {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(doc.ID),
			Vectors: qdrant.NewVectors(doc.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				"source":  doc.Source,
				"content": doc.Text,
			}),
		}
	}

	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collectionName,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}

	d.logger.Debug("upserted documents to qdrant",
		zap.Int("count", len(docs)),
	)

	return nil
}

// Query finds the topK most similar documents to the given embedding.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.ScoredMatch, error) {
	if topK <= 0 {
		topK = 10
	}

	limit := uint64(topK)
	hits, err := d.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: d.collectionName,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}

	matches := make([]vector.ScoredMatch, 0, len(hits))
	for _, hit := range hits {
		payload := hit.GetPayload()

		match := vector.ScoredMatch{
			Document: vector.Document{
				ID: hit.GetId().GetUuid(),
			},
			// Cosine similarity -> distance, lower = more similar.
			Distance: 1 - hit.GetScore(),
		}

		if v, ok := payload["source"]; ok {
			match.Source = v.GetStringValue()
		}
		if v, ok := payload["content"]; ok {
			match.Text = v.GetStringValue()
		}

		matches = append(matches, match)
	}

	d.logger.Debug("queried qdrant",
		zap.Int("results", len(matches)),
	)

	return matches, nil
}

// Delete removes documents by their IDs.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewID(id)
	}

	_, err := d.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: d.collectionName,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("deleting points: %w", err)
	}

	d.logger.Debug("deleted documents from qdrant",
		zap.Int("count", len(ids)),
	)

	return nil
}

// Close closes the gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

var _ vector.Driver = (*Driver)(nil)
