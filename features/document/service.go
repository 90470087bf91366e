// Package document ingests uploaded files into the vector store.
package document

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"doctalk/backend/internal/store"
	"doctalk/backend/internal/text"
)

type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type Service struct {
	store        *store.Store
	embedder     Embedder
	chunkSize    int
	chunkOverlap int
}

func NewService(st *store.Store, e Embedder, chunkSize, chunkOverlap int) *Service {
	return &Service{store: st, embedder: e, chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// Ingest chunks the decoded text, embeds every chunk in one batched provider
// call, and appends the vector/document pairs to the store, which flushes
// both artifacts to disk before returning. The provider call happens before
// the store is touched, so a failed embedding leaves all state unchanged.
// Returns the number of chunks added.
func (s *Service) Ingest(ctx context.Context, filename, content string) (int, error) {
	chunks, err := text.Split(content, s.chunkSize, s.chunkOverlap)
	if err != nil {
		return 0, err
	}

	vectors, err := s.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("embedding chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	docs := make([]store.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = store.Document{
			ID:       uuid.New().String(),
			Filename: filename,
			Text:     chunk,
		}
	}

	if err := s.store.AppendBatch(vectors, docs); err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "document ingested", "filename", filename, "chunks", len(chunks), "total_documents", s.store.Count())
	return len(chunks), nil
}
