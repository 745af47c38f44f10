package vectordb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/NiteeshPutla/agentic-rag/internal/domain/entities"
)

// SQLiteStore implements ports.VectorStore with SQLite persistence.
// Embeddings are stored as JSON and scored by brute-force cosine similarity.
type SQLiteStore struct {
	mu       sync.RWMutex
	db       *sql.DB
	dataPath string
	logger   *slog.Logger
}

// NewSQLiteStore opens (or creates) dataPath/vectors.db.
func NewSQLiteStore(dataPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if dataPath == "" {
		dataPath = "./data"
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataPath, "vectors.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	store := &SQLiteStore{
		db:       db,
		dataPath: dataPath,
		logger:   logger,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		content TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		total_chunks INTEGER NOT NULL,
		overlap INTEGER NOT NULL DEFAULT 0,
		embedding BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_source ON chunks(source);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Store saves chunks with their embeddings. Existing IDs are replaced.
func (s *SQLiteStore) Store(ctx context.Context, chunks []entities.EmbeddedChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO chunks (id, source, content, chunk_index, total_chunks, overlap, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		embeddingJSON, err := json.Marshal(c.Embedding)
		if err != nil {
			return fmt.Errorf("encoding embedding: %w", err)
		}

		_, err = stmt.ExecContext(ctx,
			c.ID,
			c.Chunk.Source,
			c.Chunk.Content,
			c.Chunk.SourceIndex,
			c.Chunk.TotalChunks,
			c.Chunk.Overlap,
			embeddingJSON,
		)
		if err != nil {
			return fmt.Errorf("inserting chunk %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// Search finds the most similar chunks to a query embedding.
func (s *SQLiteStore) Search(ctx context.Context, embedding []float32, topK int) ([]entities.QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, content, chunk_index, total_chunks, overlap, embedding
		FROM chunks
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var records []entities.EmbeddedChunk
	for rows.Next() {
		var rec entities.EmbeddedChunk
		var embeddingJSON []byte

		err := rows.Scan(&rec.ID, &rec.Chunk.Source, &rec.Chunk.Content,
			&rec.Chunk.SourceIndex, &rec.Chunk.TotalChunks, &rec.Chunk.Overlap, &embeddingJSON)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		if err := json.Unmarshal(embeddingJSON, &rec.Embedding); err != nil {
			s.logger.Warn("skipping chunk with corrupt embedding", "id", rec.ID, "error", err)
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}

	return rank(embedding, records, topK), nil
}

// Delete removes all chunks of a source.
func (s *SQLiteStore) Delete(ctx context.Context, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE source = ?", source)
	return err
}

// Clear removes all data from the store.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM chunks")
	return err
}

// Count returns the number of stored chunks.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
