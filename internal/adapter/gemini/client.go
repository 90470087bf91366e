package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"doctalk/backend/internal/adapter"
)

// Client is the Gemini counterpart of the OpenAI adapter, selected with
// AI_PROVIDER=gemini.
type Client struct {
	client         *genai.Client
	embeddingModel string
	chatModel      string
}

func NewClient(ctx context.Context, apiKey, embeddingModel, chatModel string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Client{client: client, embeddingModel: embeddingModel, chatModel: chatModel}, nil
}

func (c *Client) Close() error { return c.client.Close() }

// EmbedBatch returns one vector per input text, in input order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	slog.DebugContext(ctx, "embedding batch", "model", c.embeddingModel, "texts", len(texts))

	em := c.client.EmbeddingModel(c.embeddingModel)
	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	res, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini embeddings: %v", adapter.ErrGatewayUnavailable, err)
	}
	return embeddingsFromBatch(res, len(texts))
}

// embeddingsFromBatch validates a batch response and unwraps its vectors.
func embeddingsFromBatch(res *genai.BatchEmbedContentsResponse, want int) ([][]float32, error) {
	if res == nil {
		return nil, fmt.Errorf("%w: gemini returned an empty response", adapter.ErrGatewayUnavailable)
	}
	if len(res.Embeddings) != want {
		return nil, fmt.Errorf("%w: gemini returned %d embeddings for %d inputs", adapter.ErrGatewayUnavailable, len(res.Embeddings), want)
	}

	out := make([][]float32, want)
	for i, e := range res.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("%w: gemini returned an empty embedding at %d", adapter.ErrGatewayUnavailable, i)
		}
		out[i] = e.Values
	}
	return out, nil
}

// Complete answers the question from the supplied context block.
func (c *Client) Complete(ctx context.Context, system, contextBlock, question string) (string, error) {
	model := c.client.GenerativeModel(c.chatModel)
	model.SetTemperature(0.2)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}

	prompt := fmt.Sprintf("Use the following document excerpts to answer the question.\n\n%s\n\nQuestion: %s", contextBlock, question)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("%w: gemini completion: %v", adapter.ErrGatewayUnavailable, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: gemini completion returned no candidates", adapter.ErrGatewayUnavailable)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String(), nil
}
