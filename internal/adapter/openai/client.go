package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"doctalk/backend/internal/adapter"
)

// Client wraps the OpenAI API behind the embedder and completer interfaces
// the pipelines consume. One client serves both concerns so a single set of
// credentials is validated once at startup.
type Client struct {
	api            *openai.Client
	embeddingModel string
	chatModel      string
}

func NewClient(apiKey, embeddingModel, chatModel string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY is required")
	}
	return &Client{
		api:            openai.NewClient(apiKey),
		embeddingModel: embeddingModel,
		chatModel:      chatModel,
	}, nil
}

// EmbedBatch returns one vector per input text, in input order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	slog.DebugContext(ctx, "embedding batch", "model", c.embeddingModel, "texts", len(texts))

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: openai embeddings: %v", adapter.ErrGatewayUnavailable, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: openai returned %d embeddings for %d inputs", adapter.ErrGatewayUnavailable, len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("%w: openai returned embedding for index %d", adapter.ErrGatewayUnavailable, d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// Complete answers the question from the supplied context block.
func (c *Client) Complete(ctx context.Context, system, contextBlock, question string) (string, error) {
	prompt := fmt.Sprintf("Use the following document excerpts to answer the question.\n\n%s\n\nQuestion: %s", contextBlock, question)

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: openai completion: %v", adapter.ErrGatewayUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai completion returned no choices", adapter.ErrGatewayUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}
