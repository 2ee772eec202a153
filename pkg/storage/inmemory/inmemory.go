// Package inmemory provides a map-backed storage driver, used for tests and
// throwaway sessions.
package inmemory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/papercomputeco/aide/pkg/memory"
	"github.com/papercomputeco/aide/pkg/storage"
)

type memoryKey struct {
	realmID int64
	key     string
}

// Driver implements storage.Driver using in-memory maps.
type Driver struct {
	// mu guards every map and the identity counters.
	mu sync.RWMutex

	realms      map[int64]*memory.Realm
	realmsByKey map[string]int64

	memories      map[int64]*memory.Memory
	memoriesByKey map[memoryKey]int64

	nextRealmID  int64
	nextMemoryID int64
}

// NewDriver creates a new in-memory store.
func NewDriver() *Driver {
	return &Driver{
		realms:        make(map[int64]*memory.Realm),
		realmsByKey:   make(map[string]int64),
		memories:      make(map[int64]*memory.Memory),
		memoriesByKey: make(map[memoryKey]int64),
	}
}

// GetRealm retrieves a realm by its identity.
func (d *Driver) GetRealm(_ context.Context, id int64) (*memory.Realm, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	realm, ok := d.realms[id]
	if !ok {
		return nil, storage.NotFoundError{Kind: "realm", Key: strconv.FormatInt(id, 10)}
	}
	return copyRealm(realm), nil
}

// GetRealmByKey retrieves a realm by its natural key.
func (d *Driver) GetRealmByKey(_ context.Context, key string) (*memory.Realm, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.realmsByKey[key]
	if !ok {
		return nil, storage.NotFoundError{Kind: "realm", Key: key}
	}
	return copyRealm(d.realms[id]), nil
}

// AllRealms returns every realm in identity order.
func (d *Driver) AllRealms(_ context.Context) ([]*memory.Realm, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	realms := make([]*memory.Realm, 0, len(d.realms))
	for _, realm := range d.realms {
		realms = append(realms, copyRealm(realm))
	}
	slices.SortFunc(realms, func(a, b *memory.Realm) int {
		return cmp.Compare(a.ID(), b.ID())
	})
	return realms, nil
}

// AddRealm persists a realm draft.
func (d *Driver) AddRealm(_ context.Context, realm *memory.Realm) (*memory.Realm, error) {
	if realm == nil {
		return nil, errors.New("cannot store nil realm")
	}
	if realm.Persisted() {
		return nil, fmt.Errorf("realm %q is already persisted", realm.Key)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.realmsByKey[realm.Key]; ok {
		return nil, fmt.Errorf("realm %q: %w", realm.Key, storage.ErrAlreadyExists)
	}

	d.nextRealmID++
	stored := realm.WithID(d.nextRealmID)
	d.realms[stored.ID()] = stored
	d.realmsByKey[stored.Key] = stored.ID()
	return copyRealm(stored), nil
}

// MemoryExists checks whether the realm already holds a memory with key.
func (d *Driver) MemoryExists(_ context.Context, realmID int64, key string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.memoriesByKey[memoryKey{realmID: realmID, key: key}]
	return ok, nil
}

// AddMemory persists a memory draft.
func (d *Driver) AddMemory(_ context.Context, m *memory.Memory) (*memory.Memory, error) {
	if m == nil {
		return nil, errors.New("cannot store nil memory")
	}
	if m.Persisted() {
		return nil, fmt.Errorf("memory %q is already persisted", m.Key)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.realms[m.RealmID]; !ok {
		return nil, storage.NotFoundError{Kind: "realm", Key: strconv.FormatInt(m.RealmID, 10)}
	}

	k := memoryKey{realmID: m.RealmID, key: m.Key}
	if _, ok := d.memoriesByKey[k]; ok {
		return nil, fmt.Errorf("memory %q: %w", m.Key, storage.ErrAlreadyExists)
	}

	d.nextMemoryID++
	stored := m.WithID(d.nextMemoryID)
	d.memories[stored.ID()] = stored
	d.memoriesByKey[k] = stored.ID()
	return copyMemory(stored), nil
}

// GetMemory retrieves a memory by its identity.
func (d *Driver) GetMemory(_ context.Context, id int64) (*memory.Memory, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	m, ok := d.memories[id]
	if !ok {
		return nil, storage.NotFoundError{Kind: "memory", Key: strconv.FormatInt(id, 10)}
	}
	return copyMemory(m), nil
}

// AllMemoriesForRealm returns the memories of a realm in identity order.
func (d *Driver) AllMemoriesForRealm(_ context.Context, realmID int64) ([]*memory.Memory, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var result []*memory.Memory
	for _, m := range d.memories {
		if m.RealmID == realmID {
			result = append(result, copyMemory(m))
		}
	}
	slices.SortFunc(result, func(a, b *memory.Memory) int {
		return cmp.Compare(a.ID(), b.ID())
	})
	return result, nil
}

// SearchByText returns memories whose title or content contains term.
func (d *Driver) SearchByText(_ context.Context, term string, realmID int64) ([]*memory.Memory, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	needle := strings.ToLower(term)

	var result []*memory.Memory
	for _, m := range d.memories {
		if realmID != 0 && m.RealmID != realmID {
			continue
		}
		if strings.Contains(strings.ToLower(m.Title), needle) ||
			strings.Contains(strings.ToLower(m.Content), needle) {
			result = append(result, copyMemory(m))
		}
	}

	// Most recent first, newest identity breaks ties.
	slices.SortFunc(result, func(a, b *memory.Memory) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID(), a.ID())
	})
	return result, nil
}

// CountMemories returns the number of stored memories.
func (d *Driver) CountMemories(_ context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.memories), nil
}

// Close is a no-op for the in-memory store.
func (d *Driver) Close() error {
	return nil
}

func copyRealm(r *memory.Realm) *memory.Realm {
	c := *r
	return &c
}

func copyMemory(m *memory.Memory) *memory.Memory {
	c := *m
	return &c
}
