package store

import (
	"context"
	"crypto/md5"
	"database/sql"
	"fmt"
	"log"

	"docqa/types"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// EmbeddingDim is the fixed dimension of stored vectors.
const EmbeddingDim = 768

// Indexer is the vector index adapter: an opaque persistent nearest-neighbor
// store with metadata filtering. Distances are cosine distances, 0 = identical.
type Indexer interface {
	SaveDocument(context.Context, types.Document) error
	GetDocumentByFilename(context.Context, string) (*types.Document, error)
	Upsert(ctx context.Context, filename string, chunks []types.Chunk) error
	Query(ctx context.Context, embedding []float32, k int, filenameFilter string) ([]types.Candidate, error)
}

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{
		pool: pool,
	}, nil
}

// DocumentID derives a stable document id from the filename, so re-ingesting
// the same file updates the existing row.
func DocumentID(filename string) uuid.UUID {
	hash := md5.Sum([]byte(filename))
	id, _ := uuid.FromBytes(hash[:])
	return id
}

func (p *PostgresStore) GetDocumentByFilename(ctx context.Context, filename string) (*types.Document, error) {
	rows, err := p.pool.Query(ctx,
		"SELECT id, filename, source, created_at, updated_at, version FROM documents WHERE filename = $1", filename)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, sql.ErrNoRows
	}

	doc := &types.Document{}
	if err := rows.Scan(
		&doc.ID,
		&doc.Filename,
		&doc.Source,
		&doc.CreatedAt,
		&doc.UpdatedAt,
		&doc.Version); err != nil {
		return nil, err
	}
	return doc, nil
}

func (p *PostgresStore) SaveDocument(ctx context.Context, doc types.Document) error {
	query := `INSERT INTO documents (id, filename, source, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			filename = EXCLUDED.filename,
			source = EXCLUDED.source,
			updated_at = EXCLUDED.updated_at,
			version = documents.version + 1
			`
	_, err := p.pool.Exec(
		ctx,
		query,
		doc.ID,
		doc.Filename,
		doc.Source,
		doc.CreatedAt,
		doc.UpdatedAt,
		doc.Version,
	)

	return err
}

// Upsert replaces every chunk of the given file in one transaction. Chunk ids
// are {filename}_chunk_{index}, so a re-ingestion overwrites the previous run.
func (p *PostgresStore) Upsert(ctx context.Context, filename string, chunks []types.Chunk) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM chunks WHERE filename = $1", filename); err != nil {
		return fmt.Errorf("delete old chunks: %w", err)
	}

	query := `
    INSERT INTO chunks (id, filename, position, content, section_keywords, summary, description, description_status, embedding)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	for _, c := range chunks {
		if len(c.Embedding) != EmbeddingDim {
			return fmt.Errorf("chunk %s: embedding dimension %d, want %d", c.ID, len(c.Embedding), EmbeddingDim)
		}
		m := c.Metadata
		if _, err := tx.Exec(ctx, query,
			c.ID, m.Filename, c.Index, c.Content,
			m.SectionKeywords, m.Summary, m.Description, string(m.DescriptionStatus),
			pgvector.NewVector(c.Embedding),
		); err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ID, err)
		}
	}

	return tx.Commit(ctx)
}

// Query returns the k nearest chunks by cosine distance, optionally restricted
// to one source file. Zero rows is a valid outcome, not an error.
func (p *PostgresStore) Query(ctx context.Context, embedding []float32, k int, filenameFilter string) ([]types.Candidate, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("empty query embedding")
	}

	vector := pgvector.NewVector(embedding)

	query := `
		SELECT id, filename, content, section_keywords, summary, description, description_status,
		       embedding <=> $1 AS distance
		FROM chunks
		WHERE embedding IS NOT NULL AND ($3 = '' OR filename = $3)
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	rows, err := p.pool.Query(ctx, query, vector, k, filenameFilter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []types.Candidate
	for rows.Next() {
		var c types.Candidate
		var status string
		if err := rows.Scan(
			&c.ID,
			&c.Metadata.Filename,
			&c.Content,
			&c.Metadata.SectionKeywords,
			&c.Metadata.Summary,
			&c.Metadata.Description,
			&status,
			&c.Distance); err != nil {
			return nil, err
		}
		c.Metadata.DescriptionStatus = types.DescriptionStatus(status)
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return candidates, nil
}

func (p *PostgresStore) createRagTables(ctx context.Context) error {

	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS documents (
		id UUID PRIMARY KEY,
		filename TEXT NOT NULL UNIQUE,
		source TEXT,
		created_at TIMESTAMP WITH TIME ZONE,
		updated_at TIMESTAMP WITH TIME ZONE,
		version INTEGER DEFAULT 1
	);

    CREATE EXTENSION IF NOT EXISTS vector;

    CREATE TABLE IF NOT EXISTS chunks (
        id TEXT PRIMARY KEY,
        filename TEXT NOT NULL,
        position INT NOT NULL,
        content TEXT NOT NULL,
        section_keywords TEXT NOT NULL DEFAULT '',
        summary TEXT NOT NULL DEFAULT '',
        description TEXT NOT NULL DEFAULT '',
        description_status TEXT NOT NULL DEFAULT '',
        embedding vector(%d)
    );

	CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks USING ivfflat (embedding vector_cosine_ops)
	WITH (lists = 100);

	CREATE INDEX IF NOT EXISTS idx_chunks_filename ON chunks(filename);
    `, EmbeddingDim)
	_, err := p.pool.Exec(ctx, query)
	return err
}

func (p *PostgresStore) Init(ctx context.Context) error {
	return p.createRagTables(ctx)
}

// Close закрывает пул подключений
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
		log.Println("Postgres connection pool is closed")
	}
	return nil
}
