package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/aide/pkg/feed"
)

// MockFetcher serves canned feed documents by URL.
type MockFetcher struct {
	Documents map[string]*feed.Document
	Errors    map[string]error

	mu    sync.Mutex
	calls []string
}

func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		Documents: make(map[string]*feed.Document),
		Errors:    make(map[string]error),
	}
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) (*feed.Document, error) {
	m.mu.Lock()
	m.calls = append(m.calls, url)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.Errors[url]; ok {
		return nil, err
	}
	if doc, ok := m.Documents[url]; ok {
		return doc, nil
	}
	return nil, &feed.FetchError{URL: url, StatusCode: 404}
}

// Calls returns the URLs fetched so far, in order.
func (m *MockFetcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}
