package core

import "context"

// Namespace helpers. A namespace is the sole multi-tenancy isolation
// mechanism of the vector index: one per user for conversation turns and one
// per user for document chunks. No read or delete ever crosses a namespace.
func ConversationNamespace(userID string) string { return "user:" + userID }
func DocumentNamespace(userID string) string     { return "user:" + userID + ":docs" }

// Metadata field names usable in query filters.
const (
	FieldSessionID  = "session_id"
	FieldDocumentID = "document_id"
)

// Record kinds.
const (
	KindTurn  = "turn"
	KindChunk = "chunk"
)

// Metadata is the tagged payload stored next to every vector. One struct
// covers both record kinds; fields that do not apply stay zero.
type Metadata struct {
	Kind      string `json:"kind"`
	UserID    string `json:"user_id"`
	Timestamp string `json:"timestamp"` // RFC 3339

	// Conversation turns.
	SessionID   string `json:"session_id,omitempty"`
	UserMessage string `json:"user_message,omitempty"`
	AIResponse  string `json:"ai_response,omitempty"`

	// Document chunks.
	DocumentID string `json:"document_id,omitempty"`
	ChunkIndex int    `json:"chunk_index,omitempty"`
	Filename   string `json:"filename,omitempty"`
	FileType   string `json:"file_type,omitempty"`
	FileHash   string `json:"file_hash,omitempty"`
	ChunkText  string `json:"chunk_text,omitempty"`
}

// Record is one upserted vector with its searchable text and metadata.
type Record struct {
	ID     string
	Text   string
	Vector []float32
	Meta   Metadata
}

// Match is one similarity-search hit, ranked by descending cosine score.
type Match struct {
	ID    string
	Score float32
	Meta  Metadata
}

// Filter restricts a query to records whose metadata fields match. Equals is
// exact equality; In is set membership. Both maps may be nil.
type Filter struct {
	Equals map[string]string
	In     map[string][]string
}

// Matches reports whether the given metadata satisfies the filter.
func (f *Filter) Matches(m Metadata) bool {
	if f == nil {
		return true
	}
	for field, want := range f.Equals {
		if metaField(m, field) != want {
			return false
		}
	}
	for field, set := range f.In {
		got := metaField(m, field)
		found := false
		for _, want := range set {
			if got == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func metaField(m Metadata, field string) string {
	switch field {
	case FieldSessionID:
		return m.SessionID
	case FieldDocumentID:
		return m.DocumentID
	default:
		return ""
	}
}

// VectorStore abstracts a namespaced vector index. Upserts surface provider
// failures as ErrStoreUnavailable; queries degrade to an empty result set on
// provider failure.
type VectorStore interface {
	// Upsert stores or replaces one record in the namespace.
	Upsert(ctx context.Context, namespace string, rec Record) error

	// Query returns up to topK matches by descending cosine similarity,
	// optionally restricted by filter. Provider failures are logged and
	// yield an empty slice.
	Query(ctx context.Context, namespace string, vector []float32, topK int, filter *Filter) []Match

	// Sample returns up to limit records from the namespace without regard
	// to similarity. It backs session listing and cascade deletion, which
	// need a bounded scan rather than a ranked search.
	Sample(ctx context.Context, namespace string, limit int, filter *Filter) []Match

	// Delete removes the given ids from the namespace.
	Delete(ctx context.Context, namespace string, ids ...string) error

	// DeleteAll removes every record in the namespace.
	DeleteAll(ctx context.Context, namespace string) error

	Close() error
}
