package memory

import (
	"context"
	"log"
	"time"

	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/models"
)

// TurnRecorder writes conversation turns to the vector index in the
// background. The session buffer already holds the turn by the time a job is
// enqueued, so a slow or failed embedding never delays or loses the reply.
type TurnRecorder struct {
	store    core.VectorStore
	embedder core.EmbeddingProvider
	jobs     chan models.ConversationTurn
}

// NewTurnRecorder constructs the recorder with a bounded job queue (64).
func NewTurnRecorder(store core.VectorStore, embedder core.EmbeddingProvider) *TurnRecorder {
	return &TurnRecorder{
		store:    store,
		embedder: embedder,
		jobs:     make(chan models.ConversationTurn, 64),
	}
}

// Start runs numWorkers goroutines reading from the job queue.
func (r *TurnRecorder) Start(ctx context.Context, numWorkers int) {
	for w := 1; w <= numWorkers; w++ {
		go func(w int) {
			for {
				select {
				case <-ctx.Done():
					log.Println("TurnRecorder: worker shutting down.")
					return
				case turn := <-r.jobs:
					if err := r.recordOne(ctx, turn); err != nil {
						log.Printf("TurnRecorder: worker %d failed to record turn %s: %v", w, turn.ID, err)
					}
				}
			}
		}(w)
	}
}

// Enqueue schedules a turn for indexing. Blocks when the queue is full.
func (r *TurnRecorder) Enqueue(turn models.ConversationTurn) {
	r.jobs <- turn
}

func (r *TurnRecorder) recordOne(ctx context.Context, turn models.ConversationTurn) error {
	embedCtx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	vecs, err := r.embedder.EmbedTexts(embedCtx, []string{core.FormatConversation(turn.UserMessage, turn.AIResponse)})
	if err != nil {
		return err
	}
	if len(vecs) != 1 {
		return core.ErrEmbedding
	}

	writeCtx, cancelWrite := context.WithTimeout(ctx, 30*time.Second)
	defer cancelWrite()

	return r.store.Upsert(writeCtx, core.ConversationNamespace(turn.UserID), core.NewTurnRecord(turn, vecs[0]))
}
