// Package memory defines the entities aide stores: realms, which group
// everything learned from one origin, and the memories recorded inside them.
//
// Identity is assigned by a storage driver exactly once, right after insert,
// through WithID. Entities built by NewRealm and NewMemory are drafts until
// then and report an ID of 0.
package memory

import (
	"fmt"
	"strings"
	"time"
)

// Realm is a named collection of memories sourced from one origin.
type Realm struct {
	id int64

	// Key is the natural key of the realm (a feed self link or its title).
	// It is unique across all realms.
	Key string

	Name        string
	Description string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRealm builds an unpersisted realm draft.
func NewRealm(key, name, description string) (*Realm, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("%w: realm key is empty", ErrInvariantViolation)
	}

	now := time.Now().UTC()
	return &Realm{
		Key:         key,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ID returns the store assigned identity, or 0 for a draft.
func (r *Realm) ID() int64 {
	return r.id
}

// Persisted reports whether the realm has been assigned an identity.
func (r *Realm) Persisted() bool {
	return r.id != 0
}

// WithID returns a copy of r carrying the store assigned identity.
// It panics if r already has one.
func (r Realm) WithID(id int64) *Realm {
	if r.id != 0 {
		panic(fmt.Sprintf("memory: realm %q already has identity %d", r.Key, r.id))
	}
	r.id = id
	return &r
}

// Memory is one recorded item belonging to exactly one realm.
type Memory struct {
	id int64

	// RealmID references the owning realm.
	RealmID int64

	// Key is the natural key of the memory, unique within its realm.
	Key string

	Title   string
	Content string

	Link          string
	EnclosureLink string
	ImageLink     string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewMemory builds an unpersisted memory draft owned by realm.
func NewMemory(realm *Realm, key, title string) (*Memory, error) {
	if realm == nil || !realm.Persisted() {
		return nil, fmt.Errorf("%w: memory requires a persisted realm", ErrInvariantViolation)
	}
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("%w: memory key is empty", ErrInvariantViolation)
	}

	now := time.Now().UTC()
	return &Memory{
		RealmID:   realm.ID(),
		Key:       key,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ID returns the store assigned identity, or 0 for a draft.
func (m *Memory) ID() int64 {
	return m.id
}

// Persisted reports whether the memory has been assigned an identity.
func (m *Memory) Persisted() bool {
	return m.id != 0
}

// HasContent reports whether the memory carries non-blank content.
func (m *Memory) HasContent() bool {
	return strings.TrimSpace(m.Content) != ""
}

// WithID returns a copy of m carrying the store assigned identity.
// It panics if m already has one.
func (m Memory) WithID(id int64) *Memory {
	if m.id != 0 {
		panic(fmt.Sprintf("memory: memory %q already has identity %d", m.Key, m.id))
	}
	m.id = id
	return &m
}
