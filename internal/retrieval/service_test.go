package retrieval_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"doctalk/backend/internal/retrieval"
	"doctalk/backend/internal/store"
)

type MockEmbedder struct{ mock.Mock }

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

type MockCompleter struct{ mock.Mock }

func (m *MockCompleter) Complete(ctx context.Context, system, contextBlock, question string) (string, error) {
	args := m.Called(ctx, system, contextBlock, question)
	return args.String(0), args.Error(1)
}

func seededStore(t *testing.T) *store.Store {
	t.Helper()
	st := store.New(nil)
	require.NoError(t, st.AppendBatch(
		[][]float32{{0, 0}, {10, 10}, {1, 1}},
		[]store.Document{
			{ID: "a", Filename: "f.txt", Text: "origin chunk"},
			{ID: "b", Filename: "f.txt", Text: "far chunk"},
			{ID: "c", Filename: "f.txt", Text: "near chunk"},
		},
	))
	return st
}

func TestAsk(t *testing.T) {
	t.Run("Empty Store Skips The Gateway", func(t *testing.T) {
		e := &MockEmbedder{}
		c := &MockCompleter{}
		svc := retrieval.NewService(e, c, store.New(nil), nil)

		_, err := svc.Ask(context.Background(), "anything")
		assert.ErrorIs(t, err, store.ErrEmptyStore)
		e.AssertNotCalled(t, "EmbedBatch", mock.Anything, mock.Anything)
		c.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Returns Answer With Retrieved Documents", func(t *testing.T) {
		e := &MockEmbedder{}
		c := &MockCompleter{}
		svc := retrieval.NewService(e, c, seededStore(t), nil)

		e.On("EmbedBatch", mock.Anything, []string{"where is the origin?"}).
			Return([][]float32{{0.1, 0.1}}, nil)
		c.On("Complete", mock.Anything, mock.Anything,
			"origin chunk\n\nnear chunk\n\nfar chunk", "where is the origin?").
			Return("at (0,0)", nil)

		ans, err := svc.Ask(context.Background(), "where is the origin?")
		require.NoError(t, err)
		assert.Equal(t, "at (0,0)", ans.Answer)
		require.Len(t, ans.Documents, 3)
		assert.Equal(t, "origin chunk", ans.Documents[0].Text)
		assert.Equal(t, "near chunk", ans.Documents[1].Text)
		assert.Equal(t, "far chunk", ans.Documents[2].Text)
		e.AssertExpectations(t)
		c.AssertExpectations(t)
	})

	t.Run("K Is Capped At Document Count", func(t *testing.T) {
		e := &MockEmbedder{}
		c := &MockCompleter{}
		st := store.New(nil)
		require.NoError(t, st.AppendBatch(
			[][]float32{{1}},
			[]store.Document{{ID: "a", Text: "only chunk"}},
		))
		svc := retrieval.NewService(e, c, st, nil)

		e.On("EmbedBatch", mock.Anything, mock.Anything).Return([][]float32{{0.5}}, nil)
		c.On("Complete", mock.Anything, mock.Anything, "only chunk", mock.Anything).
			Return("answer", nil)

		ans, err := svc.Ask(context.Background(), "q")
		require.NoError(t, err)
		assert.Len(t, ans.Documents, 1)
	})

	t.Run("Embedder Error Propagates", func(t *testing.T) {
		e := &MockEmbedder{}
		c := &MockCompleter{}
		svc := retrieval.NewService(e, c, seededStore(t), nil)

		e.On("EmbedBatch", mock.Anything, mock.Anything).
			Return(nil, errors.New("provider down"))

		_, err := svc.Ask(context.Background(), "q")
		assert.ErrorContains(t, err, "provider down")
		c.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Completer Error Propagates", func(t *testing.T) {
		e := &MockEmbedder{}
		c := &MockCompleter{}
		svc := retrieval.NewService(e, c, seededStore(t), nil)

		e.On("EmbedBatch", mock.Anything, mock.Anything).Return([][]float32{{0, 0}}, nil)
		c.On("Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return("", errors.New("quota exceeded"))

		_, err := svc.Ask(context.Background(), "q")
		assert.ErrorContains(t, err, "quota exceeded")
	})

	t.Run("Unexpected Batch Shape Is Rejected", func(t *testing.T) {
		e := &MockEmbedder{}
		c := &MockCompleter{}
		svc := retrieval.NewService(e, c, seededStore(t), nil)

		e.On("EmbedBatch", mock.Anything, mock.Anything).
			Return([][]float32{{0, 0}, {1, 1}}, nil)

		_, err := svc.Ask(context.Background(), "q")
		assert.Error(t, err)
	})
}
