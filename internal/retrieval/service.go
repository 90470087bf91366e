// Package retrieval answers questions from the stored document chunks.
package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"doctalk/backend/internal/store"
)

const systemPrompt = "You are a helpful assistant that answers questions using the supplied context."

// defaultTopK bounds how many chunks feed the answer context.
const defaultTopK = 5

type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type Completer interface {
	Complete(ctx context.Context, system, contextBlock, question string) (string, error)
}

// Answer is a generated response plus the chunks it was grounded on, in
// ascending distance order.
type Answer struct {
	Answer    string           `json:"answer"`
	Documents []store.Document `json:"documents"`
}

type Service struct {
	embedder  Embedder
	completer Completer
	store     *store.Store
	logger    *QueryLogger
	topK      int
}

func NewService(e Embedder, c Completer, st *store.Store, l *QueryLogger) *Service {
	return &Service{embedder: e, completer: c, store: st, logger: l, topK: defaultTopK}
}

// Ask retrieves the chunks nearest the question and hands them to the
// completion provider as context. An empty store is a precondition failure
// and is rejected before any provider call is made. The store lock is never
// held across the provider calls.
func (s *Service) Ask(ctx context.Context, question string) (*Answer, error) {
	start := time.Now()

	count := s.store.Count()
	if count == 0 {
		return nil, store.ErrEmptyStore
	}

	vecs, err := s.embedder.EmbedBatch(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one question", len(vecs))
	}

	k := s.topK
	if count < k {
		k = count
	}
	docs, _, err := s.store.Search(vecs[0], k)
	if err != nil {
		return nil, err
	}

	snippets := make([]string, len(docs))
	for i, d := range docs {
		snippets[i] = d.Text
	}
	contextBlock := strings.Join(snippets, "\n\n")

	answer, err := s.completer.Complete(ctx, systemPrompt, contextBlock, question)
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	if s.logger != nil {
		s.logger.Log(QueryLogEntry{
			Query:      question,
			NumResults: len(docs),
			Duration:   time.Since(start),
		})
	}
	return &Answer{Answer: answer, Documents: docs}, nil
}
