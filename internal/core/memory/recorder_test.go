package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/models"
)

func TestRecorderIndexesEnqueuedTurn(t *testing.T) {
	store := newFakeStore()
	rec := NewTurnRecorder(store, &stubEmbedder{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec.Start(ctx, 1)

	rec.Enqueue(models.ConversationTurn{
		ID:          "turn-1",
		UserID:      "u1",
		SessionID:   "s1",
		UserMessage: "remember this",
		AIResponse:  "done",
		Timestamp:   time.Now(),
	})

	assert.Eventually(t, func() bool {
		return len(store.Sample(ctx, core.ConversationNamespace("u1"), 10, nil)) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRecorderDropsTurnOnEmbedFailure(t *testing.T) {
	store := newFakeStore()
	rec := NewTurnRecorder(store, &stubEmbedder{fail: true})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec.Start(ctx, 1)

	rec.Enqueue(models.ConversationTurn{ID: "turn-1", UserID: "u1", UserMessage: "q", AIResponse: "a"})

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, store.Sample(ctx, core.ConversationNamespace("u1"), 10, nil))
}
