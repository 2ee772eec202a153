// Package qdrant provides a Qdrant vector database driver over its gRPC API.
package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"

	"github.com/qdrant/go-client/qdrant"

	"github.com/papercomputeco/aide/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection name for storing memory embeddings.
	DefaultCollectionName = "memory_content"

	// DefaultPort is Qdrant's gRPC port.
	DefaultPort = 6334
)

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Target is the Qdrant gRPC address, "host" or "host:port".
	Target string

	// APIKey authenticates against Qdrant Cloud.
	APIKey string

	// UseTLS enables TLS on the gRPC connection.
	UseTLS bool

	// CollectionName defaults to DefaultCollectionName.
	CollectionName string

	// Dimensions is the width of stored vectors.
	Dimensions uint64
}

// Driver implements vector.Driver on Qdrant.
type Driver struct {
	client     *qdrant.Client
	collection string
	dimensions uint64
	logger     *slog.Logger

	mu      sync.Mutex
	ensured bool
}

// NewDriver connects to Qdrant.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.Target == "" {
		return nil, fmt.Errorf("qdrant target is required")
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("qdrant embedding dimensions cannot be 0, must be configured")
	}

	host, port, err := splitTarget(c.Target)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: c.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}

	collection := c.CollectionName
	if collection == "" {
		collection = DefaultCollectionName
	}

	logger.Debug("qdrant vector driver initialized",
		"host", host,
		"port", port,
		"collection", collection,
	)

	return &Driver{
		client:     client,
		collection: collection,
		dimensions: c.Dimensions,
		logger:     logger,
	}, nil
}

func splitTarget(target string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		// No port given.
		return target, DefaultPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid qdrant port %q: %w", portStr, err)
	}
	return host, port, nil
}

// EnsureCollection creates the cosine-distance collection if it is missing.
func (d *Driver) EnsureCollection(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ensured {
		return nil
	}

	exists, err := d.client.CollectionExists(ctx, d.collection)
	if err != nil {
		return fmt.Errorf("%w: checking collection %q: %w", vector.ErrConnection, d.collection, err)
	}

	if !exists {
		err := d.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: d.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     d.dimensions,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("creating collection %q: %w", d.collection, err)
		}
		d.logger.Info("created qdrant collection", "collection", d.collection)
	}

	d.ensured = true
	return nil
}

// Upsert stores records as points keyed by memory identity.
func (d *Driver) Upsert(ctx context.Context, records ...vector.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := d.EnsureCollection(ctx); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, rec := range records {
		if uint64(len(rec.Embedding)) != d.dimensions {
			return fmt.Errorf("memory %d: %w: got %d, collection has %d",
				rec.MemoryID, vector.ErrDimensions, len(rec.Embedding), d.dimensions)
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(rec.MemoryID)),
			Vectors: qdrant.NewVectors(rec.Embedding...),
			Payload: map[string]*qdrant.Value{
				"realm_id": qdrant.NewValueInt(rec.RealmID),
				"title":    qdrant.NewValueString(rec.Title),
				"content":  qdrant.NewValueString(rec.Content),
			},
		})
	}

	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}

	d.logger.Debug("upserted records to qdrant", "count", len(records))
	return nil
}

// Search finds the topK nearest records. Qdrant reports cosine similarity,
// which is converted to a distance.
func (d *Driver) Search(ctx context.Context, embedding []float32, topK int, filter *vector.Filter) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}
	if err := d.EnsureCollection(ctx); err != nil {
		return nil, err
	}

	query := &qdrant.QueryPoints{
		CollectionName: d.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if filter != nil {
		query.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatchInt("realm_id", filter.RealmID),
			},
		}
	}

	points, err := d.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}

	results := make([]vector.QueryResult, 0, len(points))
	for _, p := range points {
		results = append(results, vector.QueryResult{
			Record:   recordFromPayload(p.GetId().GetNum(), p.GetPayload()),
			Distance: 1 - p.GetScore(),
		})
	}

	d.logger.Debug("queried qdrant", "results", len(results))
	return results, nil
}

func recordFromPayload(id uint64, payload map[string]*qdrant.Value) vector.Record {
	rec := vector.Record{MemoryID: int64(id)}
	if v, ok := payload["realm_id"]; ok {
		rec.RealmID = v.GetIntegerValue()
	}
	if v, ok := payload["title"]; ok {
		rec.Title = v.GetStringValue()
	}
	if v, ok := payload["content"]; ok {
		rec.Content = v.GetStringValue()
	}
	return rec
}

// Count returns the exact number of points in the collection.
func (d *Driver) Count(ctx context.Context) (int, error) {
	if err := d.EnsureCollection(ctx); err != nil {
		return 0, err
	}

	n, err := d.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: d.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("counting points: %w", err)
	}
	return int(n), nil
}

// Close closes the gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

var _ vector.Driver = (*Driver)(nil)
