package triage

import (
	"context"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-triage/internal/ai"
	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/internal/knowledge"
)

// Fixed consumer-facing fallback messages. Retrieval never surfaces an
// error or an empty string; every failure path lands on one of these.
const (
	MsgKnowledgeUnavailable = "Knowledge base isn't available right now. Please contact support."
	MsgNothingRelevant      = "Couldn't find anything relevant. Try contacting support."
	MsgNoMatch              = "Couldn't find anything. Please contact support."
)

const (
	excerptLimit     = 500
	maxResponseLines = 5
)

// Retriever answers a free-text query from the knowledge base.
type Retriever interface {
	Answer(ctx context.Context, query string) string
}

// NewRetriever selects the retrieval strategy once at construction:
// embedding-backed when the backend initialized and the store carries
// precomputed vectors, keyword-only otherwise.
func NewRetriever(store *knowledge.Store, embedder ai.Embedder, threshold float64, logger *zap.Logger) Retriever {
	keyword := &KeywordRetriever{store: store, logger: logger}
	if embedder == nil || !store.HasEmbeddings() {
		return keyword
	}
	return &EmbeddingRetriever{
		store:     store,
		embedder:  embedder,
		threshold: threshold,
		fallback:  keyword,
		logger:    logger,
	}
}

// KeywordRetriever scores documents by the number of query tokens that
// appear in the document text.
type KeywordRetriever struct {
	store  *knowledge.Store
	logger *zap.Logger
}

// NewKeywordRetriever builds the keyword-only strategy.
func NewKeywordRetriever(store *knowledge.Store, logger *zap.Logger) *KeywordRetriever {
	return &KeywordRetriever{store: store, logger: logger}
}

// Answer returns the best keyword-overlap match. Ties keep the first
// document in load order; zero overlap yields the fixed no-match
// message.
func (r *KeywordRetriever) Answer(_ context.Context, query string) string {
	docs := r.store.Documents()
	if len(docs) == 0 {
		return MsgKnowledgeUnavailable
	}

	tokens := strings.Fields(strings.ToLower(query))

	var best *domain.KnowledgeDocument
	bestScore := 0
	for i := range docs {
		docLower := strings.ToLower(docs[i].Text)
		score := 0
		for _, token := range tokens {
			if strings.Contains(docLower, token) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = &docs[i]
		}
	}

	if best == nil || bestScore == 0 {
		return MsgNoMatch
	}
	return "Found this in our docs:\n\n" + excerpt(best.Text)
}

// EmbeddingRetriever ranks documents by cosine similarity of
// embeddings, degrading to the keyword strategy when the embedding
// call fails.
type EmbeddingRetriever struct {
	store     *knowledge.Store
	embedder  ai.Embedder
	threshold float64
	fallback  *KeywordRetriever
	logger    *zap.Logger
}

// Answer embeds the query and returns the closest document above the
// relevance threshold.
func (r *EmbeddingRetriever) Answer(ctx context.Context, query string) string {
	docs := r.store.Documents()
	if len(docs) == 0 {
		return MsgKnowledgeUnavailable
	}

	queryVec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		r.logger.Warn("query embedding failed; using keyword fallback", zap.Error(err))
		return r.fallback.Answer(ctx, query)
	}

	bestIdx := -1
	bestScore := math.Inf(-1)
	for i := range docs {
		score := cosineSimilarity(queryVec, docs[i].Embedding)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	if bestIdx < 0 || bestScore <= r.threshold {
		return MsgNothingRelevant
	}
	return formatResponse(query, docs[bestIdx].Text)
}

// formatResponse extracts the lines of the matched document that share
// a token with the query, capped at maxResponseLines. With no matching
// line it falls back to a plain excerpt.
func formatResponse(query, doc string) string {
	tokens := strings.Fields(strings.ToLower(query))
	var relevant []string
	for _, line := range strings.Split(doc, "\n") {
		lineLower := strings.ToLower(line)
		for _, token := range tokens {
			if strings.Contains(lineLower, token) {
				relevant = append(relevant, strings.TrimSpace(line))
				break
			}
		}
		if len(relevant) == maxResponseLines {
			break
		}
	}

	if len(relevant) > 0 {
		return "Here's what I found:\n\n" + strings.Join(relevant, "\n")
	}
	return "From our knowledge base:\n\n" + excerpt(doc)
}

func excerpt(text string) string {
	runes := []rune(text)
	if len(runes) > excerptLimit {
		runes = runes[:excerptLimit]
	}
	return string(runes) + "..."
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
