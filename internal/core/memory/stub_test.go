package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/models"
)

// stubEmbedder returns a fixed vector per text length and counts calls.
type stubEmbedder struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (e *stubEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.fail {
		return nil, errors.New("embedder down")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1, 0}
	}
	return out, nil
}

func (e *stubEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// fakeStore is an in-memory core.VectorStore that returns records in insert
// order. Ranking quality is irrelevant to these tests; filtering and
// namespace isolation are what matters.
type fakeStore struct {
	mu      sync.Mutex
	records map[string][]core.Record
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string][]core.Record)}
}

func (s *fakeStore) Upsert(_ context.Context, namespace string, rec core.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.records[namespace] {
		if r.ID == rec.ID {
			s.records[namespace][i] = rec
			return nil
		}
	}
	s.records[namespace] = append(s.records[namespace], rec)
	return nil
}

func (s *fakeStore) Query(_ context.Context, namespace string, _ []float32, topK int, filter *core.Filter) []core.Match {
	return s.scan(namespace, topK, filter)
}

func (s *fakeStore) Sample(_ context.Context, namespace string, limit int, filter *core.Filter) []core.Match {
	return s.scan(namespace, limit, filter)
}

func (s *fakeStore) scan(namespace string, limit int, filter *core.Filter) []core.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Match
	for _, r := range s.records[namespace] {
		if !filter.Matches(r.Meta) {
			continue
		}
		out = append(out, core.Match{ID: r.ID, Score: 0.9, Meta: r.Meta})
		if len(out) == limit {
			break
		}
	}
	return out
}

func (s *fakeStore) Delete(_ context.Context, namespace string, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := s.records[namespace][:0]
	for _, r := range s.records[namespace] {
		if !drop[r.ID] {
			kept = append(kept, r)
		}
	}
	s.records[namespace] = kept
	return nil
}

func (s *fakeStore) DeleteAll(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, namespace)
	return nil
}

func (s *fakeStore) Close() error { return nil }

// stubSearcher satisfies DocumentSearcher with canned results.
type stubSearcher struct {
	hits []models.DocumentHit
	err  error
}

func (s *stubSearcher) SearchSpecific(context.Context, string, string, []string, int) ([]models.DocumentHit, error) {
	return s.hits, s.err
}
