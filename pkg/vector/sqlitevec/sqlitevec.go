// Package sqlitevec provides a SQLite-backed vector.Index using sqlite-vec.
// User isolation uses a vec0 partition key, so KNN search is scoped to one
// user's shard before any ranking happens.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/askdocco/askdoc/pkg/vector"
)

// Index implements vector.Index using SQLite with sqlite-vec.
type Index struct {
	db     *sql.DB
	logger *zap.Logger
}

// Config holds configuration for the sqlite-vec index.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions uint
}

// NewIndex creates a new SQLite vector index backed by sqlite-vec.
func NewIndex(c Config, logger *zap.Logger) (*Index, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if c.Dimensions == 0 {
		return nil, fmt.Errorf("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	// Chunk metadata mapping table. vec0 virtual tables use integer rowids,
	// so string chunk ids map through here.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS vec_chunks (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			chunk_id TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL,
			document_id TEXT NOT NULL,
			ordinal INTEGER NOT NULL,
			text TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating chunks table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_vec_chunks_user_doc
		ON vec_chunks(user_id, document_id)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating chunks index: %w", err)
	}

	// vec0 virtual table with user_id as a partition key: KNN queries only
	// visit the matching user's shard.
	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(
			user_id TEXT partition key,
			embedding float[%d]
		)`,
		c.Dimensions,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vec0 table: %w", err)
	}

	logger.Info("sqlite-vec vector index initialized",
		zap.String("db_path", c.DBPath),
		zap.Uint("dimensions", c.Dimensions),
		zap.String("vec_version", vecVersion),
	)

	return &Index{
		db:     db,
		logger: logger,
	}, nil
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

// Insert stores records, rejecting duplicate chunk ids.
func (x *Index) Insert(ctx context.Context, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range records {
		var existing int64
		err := tx.QueryRowContext(ctx,
			`SELECT rowid FROM vec_chunks WHERE chunk_id = ?`, rec.ChunkID,
		).Scan(&existing)

		switch err {
		case nil:
			return fmt.Errorf("%w: chunk %s", vector.ErrDuplicateRecord, rec.ChunkID)
		case sql.ErrNoRows:
			// expected path
		default:
			return fmt.Errorf("checking for existing chunk %s: %w", rec.ChunkID, err)
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO vec_chunks(chunk_id, user_id, document_id, ordinal, text)
			 VALUES (?, ?, ?, ?, ?)`,
			rec.ChunkID, rec.UserID, rec.DocumentID, rec.Ordinal, rec.Text,
		)
		if err != nil {
			return fmt.Errorf("inserting chunk %s: %w", rec.ChunkID, err)
		}

		rowID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting rowid for chunk %s: %w", rec.ChunkID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vec_embeddings(rowid, user_id, embedding) VALUES (?, ?, ?)`,
			rowID, rec.UserID, serializeFloat32(rec.Embedding),
		); err != nil {
			return fmt.Errorf("inserting embedding for chunk %s: %w", rec.ChunkID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	x.logger.Debug("inserted records into sqlite-vec",
		zap.Int("count", len(records)),
	)

	return nil
}

// Query finds the topK most similar records within the user's partition.
func (x *Index) Query(ctx context.Context, userID string, embedding []float32, topK int) ([]vector.Match, error) {
	if topK <= 0 {
		topK = 10
	}

	// KNN query via vec0 MATCH, constrained to the user's partition shard,
	// then JOIN back for chunk metadata.
	rows, err := x.db.QueryContext(ctx, `
		SELECT
			c.chunk_id,
			c.document_id,
			c.ordinal,
			c.text,
			ve.distance
		FROM vec_embeddings ve
		INNER JOIN vec_chunks c ON c.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
			AND ve.user_id = ?
		ORDER BY ve.distance
	`, serializeFloat32(embedding), topK, userID)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	matches := []vector.Match{}
	for rows.Next() {
		var m vector.Match
		var distance float64
		if err := rows.Scan(&m.ChunkID, &m.DocumentID, &m.Ordinal, &m.Text, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		m.UserID = userID
		// Convert distance to similarity score: lower distance = higher similarity
		m.Score = float32(1.0 / (1.0 + distance))
		matches = append(matches, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	vector.SortMatches(matches)

	x.logger.Debug("queried sqlite-vec",
		zap.String("user_id", userID),
		zap.Int("results", len(matches)),
	)

	return matches, nil
}

// DeleteByDocument removes all records for the document within the user's
// partition and returns the count removed.
func (x *Index) DeleteByDocument(ctx context.Context, userID, documentID string) (int, error) {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT rowid FROM vec_chunks WHERE user_id = ? AND document_id = ?`,
		userID, documentID,
	)
	if err != nil {
		return 0, fmt.Errorf("querying rowids for deletion: %w", err)
	}

	var rowIDs []int64
	for rows.Next() {
		var rowID int64
		if err := rows.Scan(&rowID); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning rowid: %w", err)
		}
		rowIDs = append(rowIDs, rowID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterating rowids: %w", err)
	}

	if len(rowIDs) == 0 {
		return 0, nil
	}

	for _, rowID := range rowIDs {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM vec_embeddings WHERE rowid = ?`, rowID,
		); err != nil {
			return 0, fmt.Errorf("deleting embedding rowid %d: %w", rowID, err)
		}
	}

	placeholders := make([]string, len(rowIDs))
	args := make([]any, len(rowIDs))
	for i, id := range rowIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	deleteQuery := fmt.Sprintf(
		`DELETE FROM vec_chunks WHERE rowid IN (%s)`, strings.Join(placeholders, ","),
	)
	if _, err := tx.ExecContext(ctx, deleteQuery, args...); err != nil {
		return 0, fmt.Errorf("deleting chunks: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}

	x.logger.Debug("deleted document records from sqlite-vec",
		zap.String("user_id", userID),
		zap.String("document_id", documentID),
		zap.Int("count", len(rowIDs)),
	)

	return len(rowIDs), nil
}

// CountByDocument returns the number of live records for the document.
func (x *Index) CountByDocument(ctx context.Context, userID, documentID string) (int, error) {
	var count int
	err := x.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM vec_chunks WHERE user_id = ? AND document_id = ?`,
		userID, documentID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}

	return count, nil
}

// Close releases resources held by the index.
func (x *Index) Close() error {
	return x.db.Close()
}

var _ vector.Index = (*Index)(nil)
