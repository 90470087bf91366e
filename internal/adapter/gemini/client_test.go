package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doctalk/backend/internal/adapter"
)

func TestNewClient(t *testing.T) {
	t.Run("Rejects Empty API Key", func(t *testing.T) {
		_, err := NewClient(context.Background(), "", "gemini-embedding-001", "gemini-1.5-flash")
		assert.ErrorContains(t, err, "GEMINI_API_KEY")
	})
}

func TestEmbeddingsFromBatch(t *testing.T) {
	t.Run("Nil Response Is A Gateway Failure", func(t *testing.T) {
		_, err := embeddingsFromBatch(nil, 2)
		assert.ErrorIs(t, err, adapter.ErrGatewayUnavailable)
	})

	t.Run("Count Mismatch Is A Gateway Failure", func(t *testing.T) {
		res := &genai.BatchEmbedContentsResponse{
			Embeddings: []*genai.ContentEmbedding{{Values: []float32{1, 2}}},
		}
		_, err := embeddingsFromBatch(res, 2)
		assert.ErrorIs(t, err, adapter.ErrGatewayUnavailable)
	})

	t.Run("Empty Embedding Is A Gateway Failure", func(t *testing.T) {
		res := &genai.BatchEmbedContentsResponse{
			Embeddings: []*genai.ContentEmbedding{
				{Values: []float32{1, 2}},
				nil,
			},
		}
		_, err := embeddingsFromBatch(res, 2)
		assert.ErrorIs(t, err, adapter.ErrGatewayUnavailable)
	})

	t.Run("Unwraps Vectors In Order", func(t *testing.T) {
		res := &genai.BatchEmbedContentsResponse{
			Embeddings: []*genai.ContentEmbedding{
				{Values: []float32{1, 2}},
				{Values: []float32{3, 4}},
			},
		}
		out, err := embeddingsFromBatch(res, 2)
		require.NoError(t, err)
		assert.Equal(t, [][]float32{{1, 2}, {3, 4}}, out)
	})
}
