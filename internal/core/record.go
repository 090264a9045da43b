package core

import (
	"fmt"
	"time"

	"github.com/markdave123-py/Memora/internal/models"
)

// FormatConversation builds the searchable text for one turn. The simple
// two-line form gives better semantic search results than a decorated one.
func FormatConversation(userMessage, aiResponse string) string {
	return fmt.Sprintf("User: %s\nAI: %s", userMessage, aiResponse)
}

// NewTurnRecord builds the vector record for a conversation turn.
func NewTurnRecord(turn models.ConversationTurn, vector []float32) Record {
	return Record{
		ID:     turn.ID,
		Text:   FormatConversation(turn.UserMessage, turn.AIResponse),
		Vector: vector,
		Meta: Metadata{
			Kind:        KindTurn,
			UserID:      turn.UserID,
			SessionID:   turn.SessionID,
			UserMessage: turn.UserMessage,
			AIResponse:  turn.AIResponse,
			Timestamp:   turn.Timestamp.Format(time.RFC3339),
		},
	}
}

// ChunkID builds the deterministic id of a document chunk.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, index)
}

// NewChunkRecord builds the vector record for one document chunk.
func NewChunkRecord(documentID string, index int, userID, filename, fileType, fileHash, chunkText string, vector []float32) Record {
	return Record{
		ID:     ChunkID(documentID, index),
		Text:   chunkText,
		Vector: vector,
		Meta: Metadata{
			Kind:       KindChunk,
			UserID:     userID,
			DocumentID: documentID,
			ChunkIndex: index,
			Filename:   filename,
			FileType:   fileType,
			FileHash:   fileHash,
			ChunkText:  chunkText,
			Timestamp:  time.Now().Format(time.RFC3339),
		},
	}
}
