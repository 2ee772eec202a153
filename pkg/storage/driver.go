// Package storage defines the primary store for realms and memories.
package storage

import (
	"context"

	"github.com/papercomputeco/aide/pkg/memory"
)

// Driver defines the interface for persisting and retrieving realms and
// memories in a storage backend.
//
// Drivers enforce natural key uniqueness: a realm key is unique across all
// realms and a memory key is unique within its realm. Inserting a duplicate
// returns ErrAlreadyExists.
type Driver interface {
	// GetRealm retrieves a realm by its identity.
	GetRealm(ctx context.Context, id int64) (*memory.Realm, error)

	// GetRealmByKey retrieves a realm by its natural key. Returns a
	// NotFoundError when no realm has the key.
	GetRealmByKey(ctx context.Context, key string) (*memory.Realm, error)

	// AllRealms returns every realm in identity order.
	AllRealms(ctx context.Context) ([]*memory.Realm, error)

	// AddRealm persists a realm draft and returns it with its identity.
	AddRealm(ctx context.Context, realm *memory.Realm) (*memory.Realm, error)

	// MemoryExists checks whether the realm already holds a memory with key.
	MemoryExists(ctx context.Context, realmID int64, key string) (bool, error)

	// AddMemory persists a memory draft and returns it with its identity.
	AddMemory(ctx context.Context, m *memory.Memory) (*memory.Memory, error)

	// GetMemory retrieves a memory by its identity.
	GetMemory(ctx context.Context, id int64) (*memory.Memory, error)

	// AllMemoriesForRealm returns the memories of a realm in identity order.
	AllMemoriesForRealm(ctx context.Context, realmID int64) ([]*memory.Memory, error)

	// SearchByText returns memories whose title or content contains term,
	// case-insensitively, most recent first. A realmID of 0 searches every
	// realm.
	SearchByText(ctx context.Context, term string, realmID int64) ([]*memory.Memory, error)

	// CountMemories returns the number of stored memories.
	CountMemories(ctx context.Context) (int, error)

	// Close closes the store and releases any resources.
	Close() error
}
