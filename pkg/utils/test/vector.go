package testutils

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/papercomputeco/aide/pkg/vector"
)

// MockVectorDriver is a test vector driver that keeps records in memory.
// Search returns every stored record matching the filter, ordered by the
// distance configured in Distances (DefaultDistance when unset).
type MockVectorDriver struct {
	// Distances maps memory IDs to the distance Search reports for them.
	Distances map[int64]float32

	// DefaultDistance is reported for records missing from Distances.
	DefaultDistance float32

	// FailUpsert causes Upsert to return an error.
	FailUpsert bool

	// FailSearch causes Search to return an error.
	FailSearch bool

	// EnsureCalls counts invocations of EnsureCollection.
	EnsureCalls int

	mu      sync.Mutex
	records map[int64]vector.Record
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{
		Distances: make(map[int64]float32),
		records:   make(map[int64]vector.Record),
	}
}

func (m *MockVectorDriver) EnsureCollection(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EnsureCalls++
	return nil
}

func (m *MockVectorDriver) Upsert(_ context.Context, records ...vector.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailUpsert {
		return errors.New("mock upsert failure")
	}
	for _, r := range records {
		m.records[r.MemoryID] = r
	}
	return nil
}

func (m *MockVectorDriver) Search(_ context.Context, _ []float32, topK int, filter *vector.Filter) ([]vector.QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSearch {
		return nil, errors.New("mock search failure")
	}

	results := make([]vector.QueryResult, 0, len(m.records))
	for id, r := range m.records {
		if filter != nil && r.RealmID != filter.RealmID {
			continue
		}
		d, ok := m.Distances[id]
		if !ok {
			d = m.DefaultDistance
		}
		results = append(results, vector.QueryResult{Record: r, Distance: d})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance == results[j].Distance {
			return results[i].MemoryID < results[j].MemoryID
		}
		return results[i].Distance < results[j].Distance
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (m *MockVectorDriver) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records), nil
}

// Records returns a copy of the stored records keyed by memory ID.
func (m *MockVectorDriver) Records() map[int64]vector.Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[int64]vector.Record, len(m.records))
	for k, v := range m.records {
		out[k] = v
	}
	return out
}

func (m *MockVectorDriver) Close() error {
	return nil
}
