// Package vector provides the semantic index: one record per memory, holding
// a copy of its text, its owning realm, and its embedding.
package vector

import "context"

// Record is the vector-index-resident representation of a memory.
type Record struct {
	// MemoryID is the identity of the memory the record mirrors. It keys the
	// record: upserting the same MemoryID overwrites.
	MemoryID int64

	// RealmID is the owning realm, kept for filtered search.
	RealmID int64

	Title   string
	Content string

	// Embedding is the vector representation of Content.
	Embedding []float32
}

// QueryResult is a search hit.
type QueryResult struct {
	Record

	// Distance is the cosine distance to the query (lower = closer).
	Distance float32
}

// Filter narrows a search.
type Filter struct {
	// RealmID restricts results to one realm.
	RealmID int64
}

// Driver handles storage and retrieval of semantic records.
type Driver interface {
	// EnsureCollection creates the backing collection if needed. It is
	// idempotent and cheap after the first call.
	EnsureCollection(ctx context.Context) error

	// Upsert stores records. A record whose MemoryID already exists is
	// overwritten.
	Upsert(ctx context.Context, records ...Record) error

	// Search returns up to topK records nearest to embedding, closest first.
	// A nil filter searches every realm.
	Search(ctx context.Context, embedding []float32, topK int, filter *Filter) ([]QueryResult, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the driver.
	Close() error
}
