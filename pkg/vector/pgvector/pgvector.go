// Package pgvector provides a PostgreSQL vector driver using the pgvector
// extension.
package pgvector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register the pgx PostgreSQL driver as "pgx"
	pgv "github.com/pgvector/pgvector-go"

	"github.com/papercomputeco/aide/pkg/vector"
)

// DefaultTableName is the default name of the records table.
const DefaultTableName = "memory_content"

var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config holds configuration for the pgvector driver.
type Config struct {
	// ConnString is a PostgreSQL connection string.
	ConnString string

	// Dimensions is the width of stored vectors.
	Dimensions uint

	// TableName defaults to DefaultTableName.
	TableName string
}

// Driver implements vector.Driver on PostgreSQL + pgvector.
type Driver struct {
	db         *sql.DB
	table      string
	dimensions uint
	logger     *slog.Logger

	mu      sync.Mutex
	ensured bool
}

// NewDriver opens the database and verifies it is reachable.
func NewDriver(ctx context.Context, c Config, logger *slog.Logger) (*Driver, error) {
	if c.ConnString == "" {
		return nil, errors.New("pgvector connection string is required")
	}
	if c.Dimensions == 0 {
		return nil, errors.New("pgvector embedding dimensions cannot be 0, must be configured")
	}

	table := c.TableName
	if table == "" {
		table = DefaultTableName
	}
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	db, err := sql.Open("pgx", c.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}

	return &Driver{
		db:         db,
		table:      table,
		dimensions: c.Dimensions,
		logger:     logger,
	}, nil
}

// EnsureCollection installs the extension and creates the records table.
func (d *Driver) EnsureCollection(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ensured {
		return nil
	}

	if _, err := d.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("creating vector extension: %w", err)
	}

	create := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			memory_id BIGINT PRIMARY KEY,
			realm_id BIGINT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			embedding vector(%d) NOT NULL
		)`, d.table, d.dimensions)
	if _, err := d.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("creating table %s: %w", d.table, err)
	}

	index := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_realm_id ON %s (realm_id)`, d.table, d.table)
	if _, err := d.db.ExecContext(ctx, index); err != nil {
		return fmt.Errorf("creating realm index: %w", err)
	}

	d.ensured = true
	return nil
}

// Upsert stores records in one transaction.
func (d *Driver) Upsert(ctx context.Context, records ...vector.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := d.EnsureCollection(ctx); err != nil {
		return err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO %s (memory_id, realm_id, title, content, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT(memory_id) DO UPDATE SET
			realm_id = excluded.realm_id,
			title = excluded.title,
			content = excluded.content,
			embedding = excluded.embedding`, d.table)

	for _, rec := range records {
		if uint(len(rec.Embedding)) != d.dimensions {
			return fmt.Errorf("memory %d: %w: got %d, collection has %d",
				rec.MemoryID, vector.ErrDimensions, len(rec.Embedding), d.dimensions)
		}
		if _, err := tx.ExecContext(ctx, query,
			rec.MemoryID, rec.RealmID, rec.Title, rec.Content, pgv.NewVector(rec.Embedding),
		); err != nil {
			return fmt.Errorf("upserting record %d: %w", rec.MemoryID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("upserted records to pgvector", "count", len(records))
	return nil
}

// Search orders by the cosine distance operator.
func (d *Driver) Search(ctx context.Context, embedding []float32, topK int, filter *vector.Filter) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}
	if err := d.EnsureCollection(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT memory_id, realm_id, title, content, embedding <=> $1 AS distance
		FROM %s`, d.table)
	args := []any{pgv.NewVector(embedding), topK}
	if filter != nil {
		query += ` WHERE realm_id = $3`
		args = append(args, filter.RealmID)
	}
	query += ` ORDER BY distance LIMIT $2`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var results []vector.QueryResult
	for rows.Next() {
		var (
			r        vector.QueryResult
			distance float64
		)
		if err := rows.Scan(&r.MemoryID, &r.RealmID, &r.Title, &r.Content, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}
		r.Distance = float32(distance)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}
	return results, nil
}

// Count returns the number of stored records.
func (d *Driver) Count(ctx context.Context) (int, error) {
	if err := d.EnsureCollection(ctx); err != nil {
		return 0, err
	}

	var n int
	if err := d.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, d.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (d *Driver) Close() error {
	return d.db.Close()
}

var _ vector.Driver = (*Driver)(nil)
