package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-triage/internal/ai"
	"github.com/spec-kit/ticket-triage/internal/domain"
)

// Store holds the knowledge base corpus. It is loaded once at startup
// and read-only afterwards, so concurrent retrievals need no locking.
type Store struct {
	docs          []domain.KnowledgeDocument
	hasEmbeddings bool
}

// NewStore wraps an already-built document set. Used by Load and by
// tests that inject fixture documents directly.
func NewStore(docs []domain.KnowledgeDocument) *Store {
	hasEmbeddings := len(docs) > 0
	for _, doc := range docs {
		if len(doc.Embedding) == 0 {
			hasEmbeddings = false
			break
		}
	}
	return &Store{docs: docs, hasEmbeddings: hasEmbeddings}
}

// Load reads every .txt file under dir, sorted by filename so the
// document order is deterministic. A missing directory yields an empty
// store, not an error; retrieval then degrades to its fixed fallback
// message. When an embedder is available, document embeddings are
// computed once here and cached on the documents.
func Load(ctx context.Context, dir string, embedder ai.Embedder, logger *zap.Logger) (*Store, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("knowledge directory not found; knowledge base empty", zap.String("dir", dir))
			return NewStore(nil), nil
		}
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	docs := make([]domain.KnowledgeDocument, 0, len(names))
	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		docs = append(docs, domain.KnowledgeDocument{Name: name, Text: string(content)})
	}

	if len(docs) > 0 && embedder != nil {
		texts := make([]string, len(docs))
		for i, doc := range docs {
			texts[i] = doc.Text
		}
		vectors, err := embedder.EmbedDocuments(ctx, texts)
		if err != nil || len(vectors) != len(docs) {
			logger.Warn("document embedding failed; retrieval falls back to keyword matching", zap.Error(err))
		} else {
			for i := range docs {
				docs[i].Embedding = vectors[i]
			}
		}
	}

	store := NewStore(docs)
	logger.Info("knowledge base loaded",
		zap.Int("documents", len(docs)),
		zap.Bool("embeddings", store.HasEmbeddings()))
	return store, nil
}

// Documents returns the corpus in load order.
func (s *Store) Documents() []domain.KnowledgeDocument {
	return s.docs
}

// Len returns the number of loaded documents.
func (s *Store) Len() int {
	return len(s.docs)
}

// HasEmbeddings reports whether every document carries a precomputed
// embedding vector.
func (s *Store) HasEmbeddings() bool {
	return s.hasEmbeddings
}
