package ingestion_engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Memora/internal/core"
)

// flakyEmbedder fails every nth call. failEvery of 0 never fails.
type flakyEmbedder struct {
	mu        sync.Mutex
	calls     int
	failEvery int
}

func (e *flakyEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.failEvery > 0 && e.calls%e.failEvery == 0 {
		return nil, errors.New("embedder unavailable")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

// recordingStore collects upserts and optionally rejects them all.
type recordingStore struct {
	mu      sync.Mutex
	records map[string][]core.Record
	reject  bool
}

func newRecordingStore() *recordingStore {
	return &recordingStore{records: make(map[string][]core.Record)}
}

func (s *recordingStore) Upsert(_ context.Context, namespace string, rec core.Record) error {
	if s.reject {
		return core.ErrStoreUnavailable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[namespace] = append(s.records[namespace], rec)
	return nil
}

func (s *recordingStore) Query(_ context.Context, namespace string, _ []float32, topK int, filter *core.Filter) []core.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Match
	for _, r := range s.records[namespace] {
		if !filter.Matches(r.Meta) {
			continue
		}
		out = append(out, core.Match{ID: r.ID, Score: 0.9, Meta: r.Meta})
		if len(out) == topK {
			break
		}
	}
	return out
}

func (s *recordingStore) Sample(_ context.Context, namespace string, limit int, _ *core.Filter) []core.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Match
	for _, r := range s.records[namespace] {
		out = append(out, core.Match{ID: r.ID, Meta: r.Meta})
		if len(out) == limit {
			break
		}
	}
	return out
}

func (s *recordingStore) Delete(context.Context, string, ...string) error { return nil }
func (s *recordingStore) DeleteAll(context.Context, string) error          { return nil }
func (s *recordingStore) Close() error                                     { return nil }

func docText(lines int) []byte {
	var b strings.Builder
	for i := 0; i < lines; i++ {
		b.WriteString("An informative line about the subject matter of this document.\n")
	}
	return []byte(b.String())
}

func TestProcessStoresAllChunks(t *testing.T) {
	store := newRecordingStore()
	p := NewDocumentProcessor(&flakyEmbedder{}, store, nil)

	res, err := p.Process(context.Background(), docText(300), "notes.txt", "u1", "txt", "doc_u1_1")
	require.NoError(t, err)

	assert.Equal(t, res.TotalChunks, res.StoredChunks)
	assert.Zero(t, res.FailedChunks)
	assert.Equal(t, 1.0, res.SuccessRate)
	assert.Equal(t, "success", res.Status)
	assert.Len(t, store.records[core.DocumentNamespace("u1")], res.StoredChunks)
	assert.NotEmpty(t, res.FileHash)
	assert.Greater(t, res.TextLength, 0)
}

func TestProcessChunkIDsAndPreviews(t *testing.T) {
	store := newRecordingStore()
	p := NewDocumentProcessor(&flakyEmbedder{}, store, nil)

	res, err := p.Process(context.Background(), docText(600), "notes.txt", "u1", "txt", "doc_u1_2")
	require.NoError(t, err)

	recs := store.records[core.DocumentNamespace("u1")]
	require.NotEmpty(t, recs)
	assert.Equal(t, "doc_u1_2_chunk_0", recs[0].ID)
	assert.Equal(t, core.KindChunk, recs[0].Meta.Kind)

	require.NotEmpty(t, res.Previews)
	assert.LessOrEqual(t, len(res.Previews), 5)
	assert.LessOrEqual(t, len([]rune(res.Previews[0].Preview)), 103)
}

func TestProcessCountsFailedChunks(t *testing.T) {
	store := newRecordingStore()
	p := NewDocumentProcessor(&flakyEmbedder{failEvery: 3}, store, nil)

	res, err := p.Process(context.Background(), docText(900), "notes.txt", "u1", "txt", "doc_u1_3")
	require.NoError(t, err)

	assert.Equal(t, res.TotalChunks, res.StoredChunks+res.FailedChunks)
	assert.Greater(t, res.FailedChunks, 0)
	assert.Greater(t, res.StoredChunks, 0)
}

func TestProcessEmptyDocument(t *testing.T) {
	p := NewDocumentProcessor(&flakyEmbedder{}, newRecordingStore(), nil)

	_, err := p.Process(context.Background(), []byte("   hi  "), "empty.txt", "u1", "txt", "doc_u1_4")
	assert.ErrorIs(t, err, core.ErrEmptyContent)
}

func TestProcessUnsupportedType(t *testing.T) {
	p := NewDocumentProcessor(&flakyEmbedder{}, newRecordingStore(), nil)

	_, err := p.Process(context.Background(), docText(10), "image.png", "u1", "png", "doc_u1_5")
	assert.ErrorIs(t, err, core.ErrUnsupportedType)
}

func TestProcessNothingStored(t *testing.T) {
	store := newRecordingStore()
	store.reject = true
	p := NewDocumentProcessor(&flakyEmbedder{}, store, nil)

	_, err := p.Process(context.Background(), docText(300), "notes.txt", "u1", "txt", "doc_u1_6")
	assert.ErrorIs(t, err, core.ErrNoChunksStored)
}

func TestDecodeTextLatin1Fallback(t *testing.T) {
	// 0xE9 is é in Latin-1 and invalid as standalone UTF-8.
	data := []byte{'c', 'a', 'f', 0xE9}

	text, err := decodeText(data)
	require.NoError(t, err)
	assert.Equal(t, "café", text)
}
