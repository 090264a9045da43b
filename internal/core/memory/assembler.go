package memory

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/models"
)

const (
	minContextMessageLen = 10
	maxContextMessages   = 6
	wordCeiling          = 800
	trimmedMessages      = 4

	embedTimeout = 30 * time.Second
)

const (
	clarifyDocMessage = "I could not find anything relevant to that in the selected documents. Could you rephrase the question or point me at a specific section?"
	apologyDocMessage = "I was unable to search the selected documents just now. Please try again in a moment."
)

// DocumentSearcher is the slice of the document retriever the assembler
// needs.
type DocumentSearcher interface {
	SearchSpecific(ctx context.Context, query, userID string, documentIDs []string, topK int) ([]models.DocumentHit, error)
}

// ContextAssembler builds the message window handed to the LLM for one
// incoming message: grounding pulled from selected documents, semantically
// relevant past turns, then the verbatim recent transcript.
type ContextAssembler struct {
	buffer    *SessionBuffer
	store     core.VectorStore
	embedder  core.EmbeddingProvider
	docs      DocumentSearcher
	maxRecent int
	maxFound  int
}

func NewContextAssembler(
	buffer *SessionBuffer,
	store core.VectorStore,
	embedder core.EmbeddingProvider,
	docs DocumentSearcher,
	maxRecentTurns int,
	maxRetrieved int,
) *ContextAssembler {
	return &ContextAssembler{
		buffer:    buffer,
		store:     store,
		embedder:  embedder,
		docs:      docs,
		maxRecent: maxRecentTurns,
		maxFound:  maxRetrieved,
	}
}

// Assemble returns the context window for the message, oldest first. When
// documentIDs is non-empty a grounding segment from those documents leads
// the window.
func (a *ContextAssembler) Assemble(ctx context.Context, userID, sessionID, message string, documentIDs []string) []models.Message {
	recent := a.buffer.Recent(userID, sessionID, a.maxRecent)

	var relevant []models.Message
	if len([]rune(strings.TrimSpace(message))) >= minContextMessageLen {
		relevant = a.relevantHistory(ctx, userID, sessionID, message, recent)
	}

	combined := append(relevant, recent...)
	if len(combined) > maxContextMessages {
		combined = combined[len(combined)-maxContextMessages:]
	}
	if countWords(combined) > wordCeiling && len(combined) > trimmedMessages {
		combined = combined[len(combined)-trimmedMessages:]
	}

	if len(documentIDs) == 0 {
		return combined
	}
	return append(a.documentSegment(ctx, userID, message, documentIDs), combined...)
}

// relevantHistory surfaces past turns of this user that resemble the current
// message. Turns already present in the recent transcript are dropped.
func (a *ContextAssembler) relevantHistory(ctx context.Context, userID, sessionID, message string, recent []models.Message) []models.Message {
	embedCtx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	vecs, err := a.embedder.EmbedTexts(embedCtx, []string{message})
	if err != nil || len(vecs) != 1 {
		log.Printf("ContextAssembler: embed message failed: %v", err)
		return nil
	}

	var filter *core.Filter
	if sessionID != "" {
		filter = &core.Filter{Equals: map[string]string{core.FieldSessionID: sessionID}}
	}

	matches := a.store.Query(ctx, core.ConversationNamespace(userID), vecs[0], a.maxFound, filter)

	seen := make(map[string]bool, len(recent))
	for _, m := range recent {
		if m.Role == "user" {
			seen[m.Content] = true
		}
	}

	var out []models.Message
	for _, m := range matches {
		if m.Meta.Kind != core.KindTurn || seen[m.Meta.UserMessage] {
			continue
		}
		out = append(out,
			models.Message{Role: "user", Content: m.Meta.UserMessage},
			models.Message{Role: "assistant", Content: m.Meta.AIResponse},
		)
	}
	return out
}

// documentSegment turns document hits into grounding messages. No hits and
// retrieval failure each produce a fixed fallback message so the LLM can
// respond sensibly instead of hallucinating document content.
func (a *ContextAssembler) documentSegment(ctx context.Context, userID, message string, documentIDs []string) []models.Message {
	hits, err := a.docs.SearchSpecific(ctx, message, userID, documentIDs, a.maxFound)
	if err != nil {
		log.Printf("ContextAssembler: document search failed: %v", err)
		return []models.Message{{Role: "system", Content: apologyDocMessage}}
	}
	if len(hits) == 0 {
		return []models.Message{{Role: "system", Content: clarifyDocMessage}}
	}

	out := make([]models.Message, 0, len(hits))
	for _, h := range hits {
		out = append(out, models.Message{
			Role:    "system",
			Content: fmt.Sprintf("From document '%s': %s", h.Filename, h.Content),
		})
	}
	return out
}

func countWords(messages []models.Message) int {
	n := 0
	for _, m := range messages {
		n += len(strings.Fields(m.Content))
	}
	return n
}
