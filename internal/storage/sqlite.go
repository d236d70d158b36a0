package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kotae/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and
// initializes the schema. Parent directories are created if needed.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		name TEXT PRIMARY KEY,
		ingested_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS chunks (
		key TEXT PRIMARY KEY,
		source_document TEXT NOT NULL,
		chunk_id INTEGER NOT NULL,
		text TEXT NOT NULL,
		start_offset INTEGER NOT NULL,
		FOREIGN KEY (source_document) REFERENCES documents(name) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(source_document, chunk_id);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateDocument registers a document, replacing any previous record.
func (s *SQLiteStorage) CreateDocument(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents (name, ingested_at) VALUES (?, ?)`,
		name, time.Now(),
	)
	return err
}

// DeleteDocument removes the document and its chunks.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE source_document = ?`, name); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE name = ?`, name)
	return err
}

// BatchCreateChunks inserts chunks in one transaction.
func (s *SQLiteStorage) BatchCreateChunks(ctx context.Context, chunks []*models.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO chunks (key, source_document, chunk_id, text, start_offset)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, ch := range chunks {
		if _, err := stmt.ExecContext(ctx, ch.Key(), ch.SourceDocument, ch.ID, ch.Text, ch.StartOffset); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// GetChunk returns the chunk with the given key.
func (s *SQLiteStorage) GetChunk(ctx context.Context, key string) (*models.Chunk, error) {
	var ch models.Chunk
	err := s.db.QueryRowContext(ctx,
		`SELECT chunk_id, source_document, text, start_offset FROM chunks WHERE key = ?`, key,
	).Scan(&ch.ID, &ch.SourceDocument, &ch.Text, &ch.StartOffset)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("chunk %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// GetChunksByDocument returns the document's chunks in chunk-id order.
func (s *SQLiteStorage) GetChunksByDocument(ctx context.Context, name string) ([]*models.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chunk_id, source_document, text, start_offset
		 FROM chunks WHERE source_document = ? ORDER BY chunk_id`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var chunks []*models.Chunk
	for rows.Next() {
		var ch models.Chunk
		if err := rows.Scan(&ch.ID, &ch.SourceDocument, &ch.Text, &ch.StartOffset); err != nil {
			return nil, err
		}
		chunks = append(chunks, &ch)
	}
	return chunks, rows.Err()
}

// CountDocuments returns the number of documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n)
	return n, err
}

// CountChunks returns the number of chunks.
func (s *SQLiteStorage) CountChunks(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
