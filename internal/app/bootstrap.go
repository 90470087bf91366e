package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"doctalk/backend/internal/adapter/gemini"
	"doctalk/backend/internal/adapter/openai"
	"doctalk/backend/internal/config"
	"doctalk/backend/internal/store"
)

// AIClient is what the pipelines need from a provider: batched embeddings
// and chat completion.
type AIClient interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Complete(ctx context.Context, system, contextBlock, question string) (string, error)
}

type Dependencies struct {
	Store    *store.Store
	AIClient AIClient

	// closer releases provider resources on shutdown; nil for providers
	// without one.
	closer func() error
}

func (d *Dependencies) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer()
}

// Bootstrap restores the persisted store state and connects the configured
// AI provider. A state directory whose index and document files disagree is
// a hard error: serving from half of a snapshot would return chunks for the
// wrong vectors.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	persister, err := store.NewFilePersister(cfg.StateDir)
	if err != nil {
		return nil, fmt.Errorf("preparing state dir: %w", err)
	}

	index, docs, err := persister.Load()
	if err != nil {
		if errors.Is(err, store.ErrStateMismatch) {
			return nil, fmt.Errorf("state dir %s is corrupt, refusing to serve: %w", cfg.StateDir, err)
		}
		return nil, fmt.Errorf("loading persisted state: %w", err)
	}

	st, err := store.NewWithState(persister, index, docs)
	if err != nil {
		return nil, fmt.Errorf("restoring store: %w", err)
	}
	slog.Info("store restored", "documents", st.Count(), "dimension", st.Dimension(), "state_dir", cfg.StateDir)

	deps := &Dependencies{Store: st}

	switch cfg.AIProvider {
	case config.ProviderOpenAI:
		client, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.EmbeddingModel, cfg.ChatModel)
		if err != nil {
			return nil, fmt.Errorf("openai client: %w", err)
		}
		deps.AIClient = client
	case config.ProviderGemini:
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiEmbeddingModel, cfg.GeminiChatModel)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		deps.AIClient = client
		deps.closer = client.Close
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.AIProvider)
	}

	slog.Info("ai provider ready", "provider", cfg.AIProvider)
	return deps, nil
}
