// Package sqldriver implements storage.Driver over database/sql for every
// dialect aide supports. Queries are built with ent's dialect-aware SQL
// builder so the same code serves SQLite and PostgreSQL.
package sqldriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/aide/pkg/memory"
	"github.com/papercomputeco/aide/pkg/storage"
)

var (
	realmColumns = []string{"id", "natural_key", "name", "description", "created_at", "updated_at"}

	memoryColumns = []string{
		"id", "realm_id", "natural_key", "title", "content",
		"link", "enclosure_link", "image_link", "created_at", "updated_at",
	}
)

// UniqueViolationFunc reports whether a driver error is a unique constraint
// violation.
type UniqueViolationFunc func(error) bool

// Driver implements storage.Driver on a *sql.DB.
type Driver struct {
	db       *sql.DB
	dialect  string
	isUnique UniqueViolationFunc
}

// New runs the schema migration and returns a driver over db.
func New(ctx context.Context, db *sql.DB, dialectName string, isUnique UniqueViolationFunc) (*Driver, error) {
	if err := Migrate(ctx, entsql.OpenDB(dialectName, db)); err != nil {
		return nil, err
	}

	return &Driver{
		db:       db,
		dialect:  dialectName,
		isUnique: isUnique,
	}, nil
}

// DB returns the underlying database handle.
func (d *Driver) DB() *sql.DB {
	return d.db
}

func (d *Driver) builder() *entsql.DialectBuilder {
	return entsql.Dialect(d.dialect)
}

// GetRealm retrieves a realm by its identity.
func (d *Driver) GetRealm(ctx context.Context, id int64) (*memory.Realm, error) {
	b := d.builder()
	query, args := b.Select(realmColumns...).
		From(b.Table(realmsTable)).
		Where(entsql.EQ("id", id)).
		Query()

	realm, err := scanRealm(d.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{Kind: "realm", Key: strconv.FormatInt(id, 10)}
	}
	return realm, err
}

// GetRealmByKey retrieves a realm by its natural key.
func (d *Driver) GetRealmByKey(ctx context.Context, key string) (*memory.Realm, error) {
	b := d.builder()
	query, args := b.Select(realmColumns...).
		From(b.Table(realmsTable)).
		Where(entsql.EQ("natural_key", key)).
		Query()

	realm, err := scanRealm(d.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{Kind: "realm", Key: key}
	}
	return realm, err
}

// AllRealms returns every realm in identity order.
func (d *Driver) AllRealms(ctx context.Context) ([]*memory.Realm, error) {
	b := d.builder()
	query, args := b.Select(realmColumns...).
		From(b.Table(realmsTable)).
		OrderBy(entsql.Asc("id")).
		Query()

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying realms: %w", err)
	}
	defer rows.Close()

	var realms []*memory.Realm
	for rows.Next() {
		realm, err := scanRealm(rows)
		if err != nil {
			return nil, err
		}
		realms = append(realms, realm)
	}
	return realms, rows.Err()
}

// AddRealm persists a realm draft.
func (d *Driver) AddRealm(ctx context.Context, realm *memory.Realm) (*memory.Realm, error) {
	if realm == nil {
		return nil, errors.New("cannot store nil realm")
	}
	if realm.Persisted() {
		return nil, fmt.Errorf("realm %q is already persisted", realm.Key)
	}

	insert := d.builder().Insert(realmsTable).
		Columns("natural_key", "name", "description", "created_at", "updated_at").
		Values(realm.Key, realm.Name, realm.Description, realm.CreatedAt, realm.UpdatedAt)

	id, err := d.insert(ctx, insert)
	if err != nil {
		if d.isUnique(err) {
			return nil, fmt.Errorf("realm %q: %w", realm.Key, storage.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("inserting realm %q: %w", realm.Key, err)
	}
	return realm.WithID(id), nil
}

// MemoryExists checks whether the realm already holds a memory with key.
func (d *Driver) MemoryExists(ctx context.Context, realmID int64, key string) (bool, error) {
	b := d.builder()
	query, args := b.Select("id").
		From(b.Table(memoriesTable)).
		Where(entsql.And(
			entsql.EQ("realm_id", realmID),
			entsql.EQ("natural_key", key),
		)).
		Limit(1).
		Query()

	var id int64
	err := d.db.QueryRowContext(ctx, query, args...).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("checking memory %q: %w", key, err)
	}
	return true, nil
}

// AddMemory persists a memory draft.
func (d *Driver) AddMemory(ctx context.Context, m *memory.Memory) (*memory.Memory, error) {
	if m == nil {
		return nil, errors.New("cannot store nil memory")
	}
	if m.Persisted() {
		return nil, fmt.Errorf("memory %q is already persisted", m.Key)
	}

	insert := d.builder().Insert(memoriesTable).
		Columns("realm_id", "natural_key", "title", "content",
			"link", "enclosure_link", "image_link", "created_at", "updated_at").
		Values(m.RealmID, m.Key, m.Title, m.Content,
			m.Link, m.EnclosureLink, m.ImageLink, m.CreatedAt, m.UpdatedAt)

	id, err := d.insert(ctx, insert)
	if err != nil {
		if d.isUnique(err) {
			return nil, fmt.Errorf("memory %q: %w", m.Key, storage.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("inserting memory %q: %w", m.Key, err)
	}
	return m.WithID(id), nil
}

// GetMemory retrieves a memory by its identity.
func (d *Driver) GetMemory(ctx context.Context, id int64) (*memory.Memory, error) {
	b := d.builder()
	query, args := b.Select(memoryColumns...).
		From(b.Table(memoriesTable)).
		Where(entsql.EQ("id", id)).
		Query()

	m, err := scanMemory(d.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{Kind: "memory", Key: strconv.FormatInt(id, 10)}
	}
	return m, err
}

// AllMemoriesForRealm returns the memories of a realm in identity order.
func (d *Driver) AllMemoriesForRealm(ctx context.Context, realmID int64) ([]*memory.Memory, error) {
	b := d.builder()
	query, args := b.Select(memoryColumns...).
		From(b.Table(memoriesTable)).
		Where(entsql.EQ("realm_id", realmID)).
		OrderBy(entsql.Asc("id")).
		Query()

	return d.queryMemories(ctx, query, args)
}

// SearchByText returns memories whose title or content contains term,
// most recent first.
func (d *Driver) SearchByText(ctx context.Context, term string, realmID int64) ([]*memory.Memory, error) {
	pred := entsql.Or(
		entsql.ContainsFold("title", term),
		entsql.ContainsFold("content", term),
	)
	if realmID != 0 {
		pred = entsql.And(entsql.EQ("realm_id", realmID), pred)
	}

	b := d.builder()
	query, args := b.Select(memoryColumns...).
		From(b.Table(memoriesTable)).
		Where(pred).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id")).
		Query()

	return d.queryMemories(ctx, query, args)
}

// CountMemories returns the number of stored memories.
func (d *Driver) CountMemories(ctx context.Context) (int, error) {
	b := d.builder()
	query, args := b.Select(entsql.Count("*")).
		From(b.Table(memoriesTable)).
		Query()

	var n int
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting memories: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (d *Driver) Close() error {
	return d.db.Close()
}

// insert runs an insert and returns the generated identity. PostgreSQL
// reports it through RETURNING, SQLite through LastInsertId.
func (d *Driver) insert(ctx context.Context, insert *entsql.InsertBuilder) (int64, error) {
	if d.dialect == dialect.Postgres {
		query, args := insert.Returning("id").Query()
		var id int64
		if err := d.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	query, args := insert.Query()
	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (d *Driver) queryMemories(ctx context.Context, query string, args []any) ([]*memory.Memory, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying memories: %w", err)
	}
	defer rows.Close()

	var result []*memory.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRealm(s scanner) (*memory.Realm, error) {
	var (
		id      int64
		realm   memory.Realm
		created time.Time
		updated time.Time
	)
	if err := s.Scan(&id, &realm.Key, &realm.Name, &realm.Description, &created, &updated); err != nil {
		return nil, err
	}
	realm.CreatedAt = created.UTC()
	realm.UpdatedAt = updated.UTC()
	return realm.WithID(id), nil
}

func scanMemory(s scanner) (*memory.Memory, error) {
	var (
		id      int64
		m       memory.Memory
		created time.Time
		updated time.Time
	)
	err := s.Scan(&id, &m.RealmID, &m.Key, &m.Title, &m.Content,
		&m.Link, &m.EnclosureLink, &m.ImageLink, &created, &updated)
	if err != nil {
		return nil, err
	}
	m.CreatedAt = created.UTC()
	m.UpdatedAt = updated.UTC()
	return m.WithID(id), nil
}
