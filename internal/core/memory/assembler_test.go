package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/models"
)

func newAssembler(store core.VectorStore, embedder core.EmbeddingProvider, docs DocumentSearcher) *ContextAssembler {
	buf := NewSessionBuffer(1000, nil)
	return &ContextAssembler{
		buffer:    buf,
		store:     store,
		embedder:  embedder,
		docs:      docs,
		maxRecent: 5,
		maxFound:  3,
	}
}

func storedTurn(t *testing.T, store core.VectorStore, userID, sessionID, userMsg, aiMsg string) {
	t.Helper()
	turn := models.ConversationTurn{
		ID:          fmt.Sprintf("turn-%s-%s", sessionID, userMsg),
		UserID:      userID,
		SessionID:   sessionID,
		UserMessage: userMsg,
		AIResponse:  aiMsg,
		Timestamp:   time.Now(),
	}
	require.NoError(t, store.Upsert(context.Background(), core.ConversationNamespace(userID), core.NewTurnRecord(turn, []float32{1, 0, 0})))
}

func TestAssembleShortMessageSkipsEmbedding(t *testing.T) {
	embedder := &stubEmbedder{}
	a := newAssembler(newFakeStore(), embedder, &stubSearcher{})
	a.buffer.Append("u1", "s1", "earlier question", "earlier answer")

	got := a.Assemble(context.Background(), "u1", "s1", "ok", nil)

	assert.Len(t, got, 2)
	assert.Zero(t, embedder.callCount())
}

func TestAssembleIncludesRelevantHistory(t *testing.T) {
	store := newFakeStore()
	storedTurn(t, store, "u1", "s1", "how do I deploy the service", "use the release script")

	a := newAssembler(store, &stubEmbedder{}, &stubSearcher{})
	got := a.Assemble(context.Background(), "u1", "s1", "what was that deploy step again", nil)

	require.Len(t, got, 2)
	assert.Equal(t, "how do I deploy the service", got[0].Content)
	assert.Equal(t, "use the release script", got[1].Content)
}

func TestAssembleDeduplicatesRecentTurns(t *testing.T) {
	store := newFakeStore()
	storedTurn(t, store, "u1", "s1", "same question", "same answer")

	a := newAssembler(store, &stubEmbedder{}, &stubSearcher{})
	a.buffer.Append("u1", "s1", "same question", "same answer")

	got := a.Assemble(context.Background(), "u1", "s1", "tell me about that question", nil)

	// Only the buffered copy survives.
	assert.Len(t, got, 2)
}

func TestAssembleEmbedderFailureFallsBackToRecent(t *testing.T) {
	a := newAssembler(newFakeStore(), &stubEmbedder{fail: true}, &stubSearcher{})
	a.buffer.Append("u1", "s1", "buffered question", "buffered answer")

	got := a.Assemble(context.Background(), "u1", "s1", "a long enough message", nil)

	assert.Len(t, got, 2)
	assert.Equal(t, "buffered question", got[0].Content)
}

func TestAssembleCapsMessageCount(t *testing.T) {
	a := newAssembler(newFakeStore(), &stubEmbedder{}, &stubSearcher{})
	for i := 0; i < 6; i++ {
		a.buffer.Append("u1", "s1", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	got := a.Assemble(context.Background(), "u1", "s1", "short", nil)

	assert.Len(t, got, maxContextMessages)
	assert.Equal(t, "a5", got[len(got)-1].Content)
}

func TestAssembleWordCeilingTrims(t *testing.T) {
	wordy := strings.Repeat("lorem ipsum dolor ", 20) // 60 words per message
	a := newAssembler(newFakeStore(), &stubEmbedder{}, &stubSearcher{})
	for i := 0; i < 10; i++ {
		a.buffer.Append("u1", "s1", wordy, wordy)
	}

	got := a.Assemble(context.Background(), "u1", "s1", "hey", nil)

	// 6 messages at 60 words each stay under the ceiling.
	assert.Len(t, got, maxContextMessages)

	huge := strings.Repeat("alpha beta gamma delta ", 60) // 240 words
	b := newAssembler(newFakeStore(), &stubEmbedder{}, &stubSearcher{})
	for i := 0; i < 10; i++ {
		b.buffer.Append("u1", "s1", huge, huge)
	}

	trimmed := b.Assemble(context.Background(), "u1", "s1", "hey", nil)
	assert.Len(t, trimmed, trimmedMessages)
}

func TestAssembleDocumentSegmentLeads(t *testing.T) {
	searcher := &stubSearcher{hits: []models.DocumentHit{
		{DocumentID: "doc_u1_1", Filename: "guide.pdf", Content: "release steps are listed here"},
	}}
	a := newAssembler(newFakeStore(), &stubEmbedder{}, searcher)
	a.buffer.Append("u1", "s1", "recent question", "recent answer")

	got := a.Assemble(context.Background(), "u1", "s1", "how do I release", []string{"doc_u1_1"})

	require.NotEmpty(t, got)
	assert.Equal(t, "system", got[0].Role)
	assert.Contains(t, got[0].Content, "guide.pdf")
	assert.Equal(t, "recent answer", got[len(got)-1].Content)
}

func TestAssembleDocumentNoHits(t *testing.T) {
	a := newAssembler(newFakeStore(), &stubEmbedder{}, &stubSearcher{})

	got := a.Assemble(context.Background(), "u1", "s1", "anything about the roadmap", []string{"doc_u1_1"})

	require.NotEmpty(t, got)
	assert.Equal(t, clarifyDocMessage, got[0].Content)
}

func TestAssembleDocumentSearchError(t *testing.T) {
	a := newAssembler(newFakeStore(), &stubEmbedder{}, &stubSearcher{err: errors.New("index offline")})

	got := a.Assemble(context.Background(), "u1", "s1", "anything about the roadmap", []string{"doc_u1_1"})

	require.NotEmpty(t, got)
	assert.Equal(t, apologyDocMessage, got[0].Content)
}
