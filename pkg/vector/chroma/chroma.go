// Package chroma provides a Chroma vector database driver implementation.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/papercomputeco/aide/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection name for storing memory embeddings.
	DefaultCollectionName = "memory_content"

	defaultMaxRetries    = 3
	defaultRetryDelay    = 500 * time.Millisecond
	defaultMaxRetryDelay = 5 * time.Second
)

// Driver implements vector.Driver using Chroma's REST API.
type Driver struct {
	baseURL        string
	collectionName string
	httpClient     *http.Client
	logger         *slog.Logger

	maxRetries    int
	retryDelay    time.Duration
	maxRetryDelay time.Duration

	mu           sync.Mutex
	collectionID string
}

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// MaxRetries bounds attempts to reach the collection while Chroma is
	// starting up.
	MaxRetries int

	// RetryDelay is the first backoff delay; it doubles up to MaxRetryDelay.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// NewDriver creates a new Chroma vector driver and resolves its collection.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("chroma URL is required")
	}

	d := &Driver{
		baseURL:        c.URL,
		collectionName: c.CollectionName,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger:        logger,
		maxRetries:    c.MaxRetries,
		retryDelay:    c.RetryDelay,
		maxRetryDelay: c.MaxRetryDelay,
	}
	if d.collectionName == "" {
		d.collectionName = DefaultCollectionName
	}
	if d.maxRetries <= 0 {
		d.maxRetries = defaultMaxRetries
	}
	if d.retryDelay <= 0 {
		d.retryDelay = defaultRetryDelay
	}
	if d.maxRetryDelay <= 0 {
		d.maxRetryDelay = defaultMaxRetryDelay
	}

	if err := d.EnsureCollection(context.Background()); err != nil {
		return nil, err
	}

	logger.Debug("connected to Chroma",
		"url", c.URL,
		"collection", d.collectionName,
		"collection_id", d.collectionID,
	)

	return d, nil
}

func (d *Driver) collectionsURL() string {
	return d.baseURL + "/api/v2/tenants/default_tenant/databases/default_database/collections"
}

// EnsureCollection gets or creates the cosine-space collection, retrying with
// backoff while Chroma is unavailable. The collection ID is cached.
func (d *Driver) EnsureCollection(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.collectionID != "" {
		return nil
	}

	delay := d.retryDelay
	var lastErr error
	for attempt := 1; attempt <= d.maxRetries; attempt++ {
		id, err := d.getOrCreateCollection(ctx)
		if err == nil {
			d.collectionID = id
			return nil
		}
		lastErr = err

		if attempt == d.maxRetries {
			break
		}
		d.logger.Debug("chroma not ready, retrying",
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, d.maxRetryDelay)
	}

	return fmt.Errorf("%w: collection %q after %d attempts: %w",
		vector.ErrConnection, d.collectionName, d.maxRetries, lastErr)
}

// getOrCreateCollection gets an existing collection or creates a new one.
func (d *Driver) getOrCreateCollection(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.collectionsURL()+"/"+d.collectionName, nil)
	if err != nil {
		return "", fmt.Errorf("creating get request: %w", err)
	}

	var collection chromaCollection
	status, err := d.do(req, &collection)
	if err == nil {
		return collection.ID, nil
	}
	if status != http.StatusNotFound && status != http.StatusBadRequest {
		return "", err
	}

	// Collection doesn't exist, create it
	body, err := json.Marshal(chromaCreateCollectionRequest{
		Name:        d.collectionName,
		Metadata:    map[string]any{"hnsw:space": "cosine"},
		GetOrCreate: true,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling create request: %w", err)
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodPost, d.collectionsURL(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if _, err := d.do(req, &collection); err != nil {
		return "", fmt.Errorf("creating collection: %w", err)
	}
	return collection.ID, nil
}

// do sends req and decodes a successful JSON response into out.
func (d *Driver) do(req *http.Request, out any) (int, error) {
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("chroma returned status %d: %s", resp.StatusCode, string(body))
	}

	if out == nil {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
	}
	return resp.StatusCode, nil
}

func (d *Driver) post(ctx context.Context, path string, payload, out any) error {
	if err := d.EnsureCollection(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		d.collectionsURL()+"/"+d.collectionID+"/"+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	_, err = d.do(req, out)
	return err
}

// Upsert stores records, overwriting existing ones with the same memory identity.
func (d *Driver) Upsert(ctx context.Context, records ...vector.Record) error {
	if len(records) == 0 {
		return nil
	}

	reqBody := chromaUpsertRequest{
		IDs:        make([]string, len(records)),
		Embeddings: make([][]float32, len(records)),
		Metadatas:  make([]map[string]any, len(records)),
		Documents:  make([]string, len(records)),
	}
	for i, rec := range records {
		reqBody.IDs[i] = strconv.FormatInt(rec.MemoryID, 10)
		reqBody.Embeddings[i] = rec.Embedding
		reqBody.Metadatas[i] = map[string]any{
			"realm_id": rec.RealmID,
			"title":    rec.Title,
		}
		reqBody.Documents[i] = rec.Content
	}

	if err := d.post(ctx, "upsert", reqBody, nil); err != nil {
		return fmt.Errorf("upserting records: %w", err)
	}

	d.logger.Debug("upserted records to chroma", "count", len(records))
	return nil
}

// Search finds the topK nearest records to the given embedding.
func (d *Driver) Search(ctx context.Context, embedding []float32, topK int, filter *vector.Filter) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	reqBody := chromaQueryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        topK,
		Include:         []string{"metadatas", "documents", "distances"},
	}
	if filter != nil {
		reqBody.Where = map[string]any{"realm_id": filter.RealmID}
	}

	var queryResp chromaQueryResponse
	if err := d.post(ctx, "query", reqBody, &queryResp); err != nil {
		return nil, fmt.Errorf("querying: %w", err)
	}

	// Process first group (we only query with one embedding)
	if len(queryResp.IDs) == 0 || len(queryResp.IDs[0]) == 0 {
		return nil, nil
	}

	ids := queryResp.IDs[0]
	var (
		distances []float32
		metadatas []map[string]any
		documents []string
	)
	if len(queryResp.Distances) > 0 {
		distances = queryResp.Distances[0]
	}
	if len(queryResp.Metadatas) > 0 {
		metadatas = queryResp.Metadatas[0]
	}
	if len(queryResp.Documents) > 0 {
		documents = queryResp.Documents[0]
	}

	results := make([]vector.QueryResult, 0, len(ids))
	for i, id := range ids {
		memoryID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			d.logger.Warn("skipping chroma record with non-numeric id", "id", id)
			continue
		}

		result := vector.QueryResult{Record: vector.Record{MemoryID: memoryID}}
		if i < len(metadatas) && metadatas[i] != nil {
			// JSON numbers decode as float64.
			if realmID, ok := metadatas[i]["realm_id"].(float64); ok {
				result.RealmID = int64(realmID)
			}
			if title, ok := metadatas[i]["title"].(string); ok {
				result.Title = title
			}
		}
		if i < len(documents) {
			result.Content = documents[i]
		}
		if i < len(distances) {
			result.Distance = distances[i]
		}
		results = append(results, result)
	}

	d.logger.Debug("queried chroma", "results", len(results))
	return results, nil
}

// Count returns the number of records in the collection.
func (d *Driver) Count(ctx context.Context) (int, error) {
	if err := d.EnsureCollection(ctx); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		d.collectionsURL()+"/"+d.collectionID+"/count", nil)
	if err != nil {
		return 0, fmt.Errorf("creating count request: %w", err)
	}

	var n int
	if _, err := d.do(req, &n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

var _ vector.Driver = (*Driver)(nil)
