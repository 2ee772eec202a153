// Package sqlitevec provides a SQLite-backed vector driver using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/aide/pkg/storage/sqlite"
	"github.com/papercomputeco/aide/pkg/vector"
)

// DefaultTableName is the default name of the records table.
const DefaultTableName = "memory_content"

// Driver implements vector.Driver using SQLite with sqlite-vec.
type Driver struct {
	db         *sql.DB
	dimensions uint
	table      string
	vecTable   string
	logger     *slog.Logger

	ensureMu sync.Mutex
	ensured  bool
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions uint

	// TableName names the records table. Defaults to DefaultTableName.
	TableName string
}

// NewDriver creates a new SQLite vector driver backed by sqlite-vec.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, errors.New("database path is required")
	}

	if c.Dimensions == 0 {
		return nil, errors.New("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	table := c.TableName
	if table == "" {
		table = DefaultTableName
	}

	db, err := sql.Open("sqlite3", sqlite.DSN(c.DBPath))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	logger.Debug("sqlite-vec vector driver initialized",
		"db_path", c.DBPath,
		"dimensions", c.Dimensions,
		"vec_version", vecVersion,
	)

	return &Driver{
		db:         db,
		dimensions: c.Dimensions,
		table:      table,
		vecTable:   table + "_vec",
		logger:     logger,
	}, nil
}

// EnsureCollection creates the records table and the vec0 virtual table.
func (d *Driver) EnsureCollection(ctx context.Context) error {
	d.ensureMu.Lock()
	defer d.ensureMu.Unlock()

	if d.ensured {
		return nil
	}

	// vec0 rows are keyed by rowid, which doubles as the memory identity.
	createRecords := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			memory_id INTEGER PRIMARY KEY,
			realm_id INTEGER NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT ''
		)`, d.table)
	if _, err := d.db.ExecContext(ctx, createRecords); err != nil {
		return fmt.Errorf("creating records table: %w", err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(embedding float[%d] distance_metric=cosine)`,
		d.vecTable, d.dimensions,
	)
	if _, err := d.db.ExecContext(ctx, createVec); err != nil {
		return fmt.Errorf("creating vec0 table: %w", err)
	}

	d.ensured = true
	return nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func (d *Driver) checkDimensions(v []float32) error {
	if uint(len(v)) != d.dimensions {
		return fmt.Errorf("%w: got %d, collection has %d", vector.ErrDimensions, len(v), d.dimensions)
	}
	return nil
}

// Upsert stores records, overwriting existing ones with the same memory
// identity. All records are written in one transaction.
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

	upsertRecord := fmt.Sprintf(`
		INSERT INTO %s(memory_id, realm_id, title, content) VALUES (?, ?, ?, ?)
		ON CONFLICT(memory_id) DO UPDATE SET
			realm_id = excluded.realm_id,
			title = excluded.title,
			content = excluded.content`, d.table)
	deleteVec := fmt.Sprintf(`DELETE FROM %s WHERE rowid = ?`, d.vecTable)
	insertVec := fmt.Sprintf(`INSERT INTO %s(rowid, embedding) VALUES (?, ?)`, d.vecTable)

	for _, rec := range records {
		if err := d.checkDimensions(rec.Embedding); err != nil {
			return fmt.Errorf("memory %d: %w", rec.MemoryID, err)
		}

		if _, err := tx.ExecContext(ctx, upsertRecord,
			rec.MemoryID, rec.RealmID, rec.Title, rec.Content,
		); err != nil {
			return fmt.Errorf("upserting record %d: %w", rec.MemoryID, err)
		}

		// vec0 does not support UPDATE or UPSERT
		if _, err := tx.ExecContext(ctx, deleteVec, rec.MemoryID); err != nil {
			return fmt.Errorf("deleting old embedding for record %d: %w", rec.MemoryID, err)
		}
		if _, err := tx.ExecContext(ctx, insertVec, rec.MemoryID, serializeFloat32(rec.Embedding)); err != nil {
			return fmt.Errorf("inserting embedding for record %d: %w", rec.MemoryID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("upserted records to sqlite-vec", "count", len(records))
	return nil
}

// Search finds the topK nearest records by cosine distance. Unfiltered
// searches use the vec0 KNN index; realm-filtered searches scan the realm's
// records with vec_distance_cosine so the filter applies before the limit.
func (d *Driver) Search(ctx context.Context, embedding []float32, topK int, filter *vector.Filter) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}
	if err := d.checkDimensions(embedding); err != nil {
		return nil, err
	}
	if err := d.EnsureCollection(ctx); err != nil {
		return nil, err
	}

	queryBlob := serializeFloat32(embedding)

	var (
		rows *sql.Rows
		err  error
	)
	if filter == nil {
		rows, err = d.db.QueryContext(ctx, fmt.Sprintf(`
			SELECT r.memory_id, r.realm_id, r.title, r.content, v.distance
			FROM %s v
			INNER JOIN %s r ON r.memory_id = v.rowid
			WHERE v.embedding MATCH ?
				AND v.k = ?
			ORDER BY v.distance`, d.vecTable, d.table), queryBlob, topK)
	} else {
		rows, err = d.db.QueryContext(ctx, fmt.Sprintf(`
			SELECT r.memory_id, r.realm_id, r.title, r.content,
				vec_distance_cosine(v.embedding, ?) AS distance
			FROM %s r
			INNER JOIN %s v ON v.rowid = r.memory_id
			WHERE r.realm_id = ?
			ORDER BY distance
			LIMIT ?`, d.table, d.vecTable), queryBlob, filter.RealmID, topK)
	}
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

	d.logger.Debug("queried sqlite-vec", "results", len(results), "filtered", filter != nil)
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

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return d.db.Close()
}

var _ vector.Driver = (*Driver)(nil)
