package triage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/internal/knowledge"
)

type fakeEmbedder struct {
	queryVec []float32
	queryErr error
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return f.queryVec, f.queryErr
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = f.queryVec
	}
	return vectors, nil
}

func TestKeywordRetrieverAnswer(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name         string
		docs         []domain.KnowledgeDocument
		query        string
		wantContains string
		wantExact    string
	}{
		{
			name:      "empty store",
			docs:      nil,
			query:     "anything at all",
			wantExact: MsgKnowledgeUnavailable,
		},
		{
			name: "best overlap wins",
			docs: []domain.KnowledgeDocument{
				{Name: "a.txt", Text: "reset your password here"},
				{Name: "b.txt", Text: "billing invoice details"},
			},
			query:        "how do I reset password",
			wantContains: "reset your password here",
		},
		{
			name: "zero overlap",
			docs: []domain.KnowledgeDocument{
				{Name: "a.txt", Text: "reset your password here"},
			},
			query:     "zebra migration",
			wantExact: MsgNoMatch,
		},
		{
			name: "whitespace query",
			docs: []domain.KnowledgeDocument{
				{Name: "a.txt", Text: "reset your password here"},
			},
			query:     "   ",
			wantExact: MsgNoMatch,
		},
		{
			name: "tie keeps first document",
			docs: []domain.KnowledgeDocument{
				{Name: "a.txt", Text: "shared token alpha"},
				{Name: "b.txt", Text: "shared token beta"},
			},
			query:        "shared token",
			wantContains: "alpha",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retriever := NewKeywordRetriever(knowledge.NewStore(tt.docs), logger)
			got := retriever.Answer(context.Background(), tt.query)
			require.NotEmpty(t, got)
			if tt.wantExact != "" {
				assert.Equal(t, tt.wantExact, got)
			}
			if tt.wantContains != "" {
				assert.Contains(t, got, tt.wantContains)
				assert.True(t, strings.HasPrefix(got, "Found this in our docs:"))
			}
		})
	}
}

func TestKeywordRetrieverTruncatesLongDocuments(t *testing.T) {
	long := strings.Repeat("password ", 200)
	store := knowledge.NewStore([]domain.KnowledgeDocument{{Name: "a.txt", Text: long}})
	retriever := NewKeywordRetriever(store, zap.NewNop())

	got := retriever.Answer(context.Background(), "password")
	body := strings.TrimPrefix(got, "Found this in our docs:\n\n")
	assert.LessOrEqual(t, len(body), 503) // 500 chars plus ellipsis
	assert.True(t, strings.HasSuffix(got, "..."))
}

func embeddedDocs() []domain.KnowledgeDocument {
	return []domain.KnowledgeDocument{
		{
			Name:      "passwords.txt",
			Text:      "Account help\nTo reset your password visit settings\nContact support otherwise",
			Embedding: []float32{1, 0, 0},
		},
		{
			Name:      "billing.txt",
			Text:      "Invoices are emailed monthly",
			Embedding: []float32{0, 1, 0},
		},
	}
}

func TestEmbeddingRetrieverAnswer(t *testing.T) {
	logger := zap.NewNop()

	t.Run("picks most similar document above threshold", func(t *testing.T) {
		store := knowledge.NewStore(embeddedDocs())
		embedder := &fakeEmbedder{queryVec: []float32{1, 0, 0}}
		retriever := NewRetriever(store, embedder, 0.3, logger)

		got := retriever.Answer(context.Background(), "reset password")
		assert.True(t, strings.HasPrefix(got, "Here's what I found:"))
		assert.Contains(t, got, "reset your password")
		assert.NotContains(t, got, "Invoices")
	})

	t.Run("below threshold returns fixed message", func(t *testing.T) {
		store := knowledge.NewStore(embeddedDocs())
		// Orthogonal to both documents.
		embedder := &fakeEmbedder{queryVec: []float32{0, 0, 1}}
		retriever := NewRetriever(store, embedder, 0.3, logger)

		got := retriever.Answer(context.Background(), "unrelated question")
		assert.Equal(t, MsgNothingRelevant, got)
	})

	t.Run("embedding failure falls back to keyword match", func(t *testing.T) {
		store := knowledge.NewStore(embeddedDocs())
		embedder := &fakeEmbedder{queryErr: errors.New("backend down")}
		retriever := NewRetriever(store, embedder, 0.3, logger)

		got := retriever.Answer(context.Background(), "reset password")
		assert.True(t, strings.HasPrefix(got, "Found this in our docs:"))
		assert.Contains(t, got, "reset your password")
	})

	t.Run("line extraction caps at five lines", func(t *testing.T) {
		text := strings.TrimSpace(strings.Repeat("password tip\n", 8))
		store := knowledge.NewStore([]domain.KnowledgeDocument{
			{Name: "a.txt", Text: text, Embedding: []float32{1, 0}},
		})
		embedder := &fakeEmbedder{queryVec: []float32{1, 0}}
		retriever := NewRetriever(store, embedder, 0.3, logger)

		got := retriever.Answer(context.Background(), "password")
		body := strings.TrimPrefix(got, "Here's what I found:\n\n")
		assert.Len(t, strings.Split(body, "\n"), 5)
	})
}

func TestNewRetrieverSelectsStrategy(t *testing.T) {
	logger := zap.NewNop()

	noEmbeddings := knowledge.NewStore([]domain.KnowledgeDocument{{Name: "a.txt", Text: "text"}})
	withEmbeddings := knowledge.NewStore(embeddedDocs())
	embedder := &fakeEmbedder{queryVec: []float32{1, 0, 0}}

	_, isKeyword := NewRetriever(noEmbeddings, embedder, 0.3, logger).(*KeywordRetriever)
	assert.True(t, isKeyword, "store without embeddings must use keyword strategy")

	_, isKeyword = NewRetriever(withEmbeddings, nil, 0.3, logger).(*KeywordRetriever)
	assert.True(t, isKeyword, "nil embedder must use keyword strategy")

	_, isEmbedding := NewRetriever(withEmbeddings, embedder, 0.3, logger).(*EmbeddingRetriever)
	assert.True(t, isEmbedding)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, cosineSimilarity(nil, []float32{1}))
	assert.Zero(t, cosineSimilarity([]float32{1, 2}, []float32{1}))
}
