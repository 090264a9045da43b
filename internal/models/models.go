package models

import (
	"time"
)

// Ingestion outcome statuses. A document counts as "success" when more than
// half of its chunks were stored, "partial_success" otherwise; zero stored
// chunks fails the whole ingestion instead of producing a status.
const (
	StatusSuccess        = "success"
	StatusPartialSuccess = "partial_success"
	StatusFailed         = "failed"
)

// Message is one role-tagged entry of an assembled context window.
type Message struct {
	Role    string `json:"role"` // "user" | "assistant" | "system"
	Content string `json:"content"`
}

// ConversationTurn is one user/assistant exchange. Turns are immutable once
// stored; they are only ever bulk-deleted with the rest of a user's data.
type ConversationTurn struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	SessionID   string    `json:"session_id"`
	UserMessage string    `json:"user_message"`
	AIResponse  string    `json:"ai_response"`
	Timestamp   time.Time `json:"timestamp"`
}

// DocumentRecord tracks an ingested document independent of the vector index.
type DocumentRecord struct {
	DocumentID   string    `json:"document_id"`
	UserID       string    `json:"user_id"`
	Filename     string    `json:"filename"`
	FileType     string    `json:"file_type"`
	FileHash     string    `json:"file_hash"`
	StorageKey   string    `json:"storage_key,omitempty"` // object-storage key of the raw upload
	TotalChunks  int       `json:"total_chunks"`
	StoredChunks int       `json:"stored_chunks_count"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is derived by grouping stored turns; it is never stored directly.
type Session struct {
	SessionID     string    `json:"session_id"`
	UserID        string    `json:"user_id"`
	CreatedAt     time.Time `json:"created_at"`
	LastMessageAt time.Time `json:"last_message_at"`
	MessageCount  int       `json:"message_count"`
	Title         string    `json:"title"`
	Preview       string    `json:"preview"`
}

// ChunkPreview is the short sample of a stored chunk returned with an
// ingestion result.
type ChunkPreview struct {
	ChunkID string `json:"chunk_id"`
	Preview string `json:"preview"`
}

// IngestResult reports per-chunk accounting for one processed document.
type IngestResult struct {
	DocumentID   string         `json:"document_id"`
	Filename     string         `json:"filename"`
	FileType     string         `json:"file_type"`
	FileHash     string         `json:"file_hash"`
	TotalChunks  int            `json:"total_chunks"`
	StoredChunks int            `json:"stored_chunks_count"`
	FailedChunks int            `json:"failed_chunks"`
	SuccessRate  float64        `json:"success_rate"`
	TextLength   int            `json:"text_length"`
	Previews     []ChunkPreview `json:"stored_chunks"`
	Status       string         `json:"status"`
}

// DocumentHit is one similarity-search result over document chunks.
type DocumentHit struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Content    string  `json:"content"` // first 500 chars of the chunk text
	Score      float32 `json:"score"`
	FileType   string  `json:"file_type"`
	Timestamp  string  `json:"timestamp"`
}

// User represents an authenticated user of the system.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
