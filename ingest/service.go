package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docqa/model"
	"docqa/store"
	"docqa/types"
)

// Service runs the write path: read markdown, chunk, enrich, embed, upsert.
// Documents are processed one at a time, sequentially.
type Service struct {
	logger   *slog.Logger
	store    store.Indexer
	chunker  *Chunker
	enricher *Enricher
	embedder model.EmbedderInterface
}

func New(storer store.Indexer, chunker *Chunker, enricher *Enricher, embedder model.EmbedderInterface) *Service {
	return &Service{
		logger:   slog.Default(),
		store:    storer,
		chunker:  chunker,
		enricher: enricher,
		embedder: embedder,
	}
}

// ProcessDir ingests every markdown file under dir. A failed file is reported
// and skipped; it does not stop the run.
func (s *Service) ProcessDir(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read source directory: %w", err)
	}

	processed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".md") {
			continue
		}
		if err := s.ProcessFile(ctx, filepath.Join(dir, entry.Name())); err != nil {
			s.logger.Error("failed to ingest file", "file", entry.Name(), "error", err)
			continue
		}
		processed++
	}
	s.logger.Info("ingestion run complete", "processed", processed)
	return nil
}

// ProcessFile ingests a single markdown file.
func (s *Service) ProcessFile(ctx context.Context, path string) error {
	s.logger.Info("processing file", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	filename := filepath.Base(path)

	chunks := s.chunker.Chunk(filename, string(data))
	if len(chunks) == 0 {
		s.logger.Warn("no chunks produced", "file", filename)
		return nil
	}
	s.logger.Info("chunked document", "file", filename, "chunks", len(chunks))

	// embeddings are computed from content only, before enrichment, so a
	// metadata change never requires re-embedding
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	embeddings, err := s.embedder.Embed(ctx, texts, model.EmbedDocument)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: got %d, want %d", len(embeddings), len(chunks))
	}
	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}

	s.enricher.Enrich(ctx, chunks)

	now := time.Now()
	doc := types.Document{
		ID:        store.DocumentID(filename),
		Filename:  filename,
		Source:    "markdown",
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
	// on re-ingestion the original creation time survives and the version moves on
	if existing, err := s.store.GetDocumentByFilename(ctx, filename); err == nil {
		doc.CreatedAt = existing.CreatedAt
		doc.Version = existing.Version + 1
		s.logger.Info("re-ingesting document", "file", filename, "version", doc.Version)
	}
	if err := s.store.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	if err := s.store.Upsert(ctx, filename, chunks); err != nil {
		return fmt.Errorf("save chunks: %w", err)
	}

	s.logger.Info("document stored", "file", filename, "chunks", len(chunks))
	return nil
}
