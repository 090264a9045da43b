package vectorstore

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/markdave123-py/Memora/internal/core"
)

var _ core.VectorStore = (*ChromemStore)(nil)

// ChromemStore implements core.VectorStore on chromem-go, a pure Go embedded
// vector database. Each namespace maps to one collection, so isolation falls
// out of the collection boundary.
type ChromemStore struct {
	db          *chromem.DB
	dims        int
	mu          sync.RWMutex
	collections map[string]*chromem.Collection
}

func NewChromemStore(dims int) *ChromemStore {
	return &ChromemStore{
		db:          chromem.NewDB(),
		dims:        dims,
		collections: make(map[string]*chromem.Collection),
	}
}

// getOrCreate returns the collection for a namespace, creating it on first use.
func (s *ChromemStore) getOrCreate(namespace string) (*chromem.Collection, error) {
	s.mu.RLock()
	col, exists := s.collections[namespace]
	s.mu.RUnlock()
	if exists {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock
	if col, exists := s.collections[namespace]; exists {
		return col, nil
	}

	col, err := s.db.CreateCollection(namespace, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	s.collections[namespace] = col
	return col, nil
}

// get returns the collection for a namespace if it exists.
func (s *ChromemStore) get(namespace string) *chromem.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collections[namespace]
}

func (s *ChromemStore) Upsert(ctx context.Context, namespace string, rec core.Record) error {
	col, err := s.getOrCreate(namespace)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}

	doc := chromem.Document{
		ID:        rec.ID,
		Content:   rec.Text,
		Embedding: rec.Vector,
		Metadata:  metaToMap(rec.Meta),
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *ChromemStore) Query(ctx context.Context, namespace string, vector []float32, topK int, filter *core.Filter) []core.Match {
	return s.query(ctx, namespace, vector, topK, filter)
}

// Sample queries with a fixed probe vector: the scores are meaningless but
// the scan is bounded and namespace-scoped, which is all the callers need.
func (s *ChromemStore) Sample(ctx context.Context, namespace string, limit int, filter *core.Filter) []core.Match {
	probe := make([]float32, s.dims)
	probe[0] = 1
	return s.query(ctx, namespace, probe, limit, filter)
}

func (s *ChromemStore) query(ctx context.Context, namespace string, vector []float32, topK int, filter *core.Filter) []core.Match {
	col := s.get(namespace)
	if col == nil || topK <= 0 {
		return nil
	}

	// chromem rejects nResults larger than the collection, so cap it. Set
	// membership is not expressible in a where clause; over-fetch and apply
	// the filter afterwards.
	n := topK
	if filter != nil && len(filter.In) > 0 {
		n = topK * 4
	}
	if count := col.Count(); n > count {
		n = count
	}
	if n == 0 {
		return nil
	}

	var where map[string]string
	if filter != nil && len(filter.Equals) > 0 {
		where = filter.Equals
	}

	results, err := col.QueryEmbedding(ctx, vector, n, where, nil)
	if err != nil {
		log.Printf("vectorstore: query on %q failed: %v", namespace, err)
		return nil
	}

	matches := make([]core.Match, 0, len(results))
	for _, res := range results {
		meta := metaFromMap(res.Metadata)
		if !filter.Matches(meta) {
			continue
		}
		matches = append(matches, core.Match{ID: res.ID, Score: res.Similarity, Meta: meta})
		if len(matches) == topK {
			break
		}
	}
	return matches
}

func (s *ChromemStore) Delete(ctx context.Context, namespace string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	col := s.get(namespace)
	if col == nil {
		return nil
	}
	if err := col.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *ChromemStore) DeleteAll(ctx context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.collections[namespace]; !exists {
		return nil
	}
	if err := s.db.DeleteCollection(namespace); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	delete(s.collections, namespace)
	return nil
}

func (s *ChromemStore) Close() error {
	// chromem keeps everything in memory, nothing to release.
	return nil
}

// metaToMap flattens a Metadata struct into chromem's string map so that
// session_id and document_id stay addressable by where filters.
func metaToMap(m core.Metadata) map[string]string {
	out := map[string]string{
		"kind":      m.Kind,
		"user_id":   m.UserID,
		"timestamp": m.Timestamp,
	}
	if m.SessionID != "" {
		out["session_id"] = m.SessionID
	}
	if m.UserMessage != "" {
		out["user_message"] = m.UserMessage
	}
	if m.AIResponse != "" {
		out["ai_response"] = m.AIResponse
	}
	if m.DocumentID != "" {
		out["document_id"] = m.DocumentID
		out["chunk_index"] = strconv.Itoa(m.ChunkIndex)
	}
	if m.Filename != "" {
		out["filename"] = m.Filename
	}
	if m.FileType != "" {
		out["file_type"] = m.FileType
	}
	if m.FileHash != "" {
		out["file_hash"] = m.FileHash
	}
	if m.ChunkText != "" {
		out["chunk_text"] = m.ChunkText
	}
	return out
}

func metaFromMap(in map[string]string) core.Metadata {
	idx, _ := strconv.Atoi(in["chunk_index"])
	return core.Metadata{
		Kind:        in["kind"],
		UserID:      in["user_id"],
		Timestamp:   in["timestamp"],
		SessionID:   in["session_id"],
		UserMessage: in["user_message"],
		AIResponse:  in["ai_response"],
		DocumentID:  in["document_id"],
		ChunkIndex:  idx,
		Filename:    in["filename"],
		FileType:    in["file_type"],
		FileHash:    in["file_hash"],
		ChunkText:   in["chunk_text"],
	}
}
