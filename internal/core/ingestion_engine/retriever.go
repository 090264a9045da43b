package ingestion_engine

import (
	"context"
	"fmt"

	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/models"
)

const maxHitContentChars = 500

// DocumentRetriever answers semantic queries against a user's document
// namespace.
type DocumentRetriever struct {
	embedder core.EmbeddingProvider
	store    core.VectorStore
}

func NewDocumentRetriever(embedder core.EmbeddingProvider, store core.VectorStore) *DocumentRetriever {
	return &DocumentRetriever{embedder: embedder, store: store}
}

// Search returns the topK best-matching chunks across all of the user's
// documents, best first.
func (r *DocumentRetriever) Search(ctx context.Context, query, userID string, topK int) ([]models.DocumentHit, error) {
	return r.search(ctx, query, userID, topK, nil)
}

// SearchSpecific restricts the search to the given document ids.
func (r *DocumentRetriever) SearchSpecific(ctx context.Context, query, userID string, documentIDs []string, topK int) ([]models.DocumentHit, error) {
	if len(documentIDs) == 0 {
		return nil, nil
	}
	filter := &core.Filter{In: map[string][]string{core.FieldDocumentID: documentIDs}}
	hits, err := r.search(ctx, query, userID, topK, filter)
	if err != nil {
		return nil, err
	}

	allowed := make(map[string]bool, len(documentIDs))
	for _, id := range documentIDs {
		allowed[id] = true
	}
	out := hits[:0]
	for _, h := range hits {
		if allowed[h.DocumentID] {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *DocumentRetriever) search(ctx context.Context, query, userID string, topK int, filter *core.Filter) ([]models.DocumentHit, error) {
	embedCtx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	vecs, err := r.embedder.EmbedTexts(embedCtx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, core.ErrEmbedding
	}

	matches := r.store.Query(ctx, core.DocumentNamespace(userID), vecs[0], topK, filter)

	hits := make([]models.DocumentHit, 0, len(matches))
	for _, m := range matches {
		if m.Meta.Kind != core.KindChunk {
			continue
		}
		hits = append(hits, models.DocumentHit{
			DocumentID: m.Meta.DocumentID,
			Filename:   m.Meta.Filename,
			ChunkIndex: m.Meta.ChunkIndex,
			Content:    clipContent(m.Meta.ChunkText),
			Score:      m.Score,
			FileType:   m.Meta.FileType,
			Timestamp:  m.Meta.Timestamp,
		})
	}
	return hits, nil
}

func clipContent(text string) string {
	runes := []rune(text)
	if len(runes) <= maxHitContentChars {
		return text
	}
	return string(runes[:maxHitContentChars]) + "..."
}
