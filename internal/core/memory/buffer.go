package memory

import (
	"sync"

	"github.com/markdave123-py/Memora/internal/models"
)

// Condenser compacts a session transcript when it grows past the token
// budget. Implementations may summarize with an LLM; the default simply
// drops the oldest messages.
type Condenser interface {
	Condense(messages []models.Message, tokenBudget int) []models.Message
}

// truncateCondenser keeps the newest messages that fit the budget.
type truncateCondenser struct{}

func (truncateCondenser) Condense(messages []models.Message, tokenBudget int) []models.Message {
	total := 0
	cut := len(messages)
	for i := len(messages) - 1; i >= 0; i-- {
		total += approxTokens(messages[i].Content)
		if total > tokenBudget {
			break
		}
		cut = i
	}
	// The latest exchange always survives, budget or not.
	if cut > len(messages)-2 && len(messages) >= 2 {
		cut = len(messages) - 2
	}
	return messages[cut:]
}

func approxTokens(s string) int {
	n := len([]rune(s))
	if n <= 0 {
		return 0
	}
	return (n + 3) / 4
}

type sessionState struct {
	mu       sync.Mutex
	userID   string
	messages []models.Message
}

// SessionBuffer holds the verbatim recent transcript of every live session.
// Writes land here synchronously before any vector write is scheduled, so a
// turn is always visible to the next context assembly for its session.
type SessionBuffer struct {
	mu         sync.RWMutex
	sessions   map[string]*sessionState
	condenser  Condenser
	tokenLimit int
}

func NewSessionBuffer(tokenLimit int, condenser Condenser) *SessionBuffer {
	if condenser == nil {
		condenser = truncateCondenser{}
	}
	return &SessionBuffer{
		sessions:   make(map[string]*sessionState),
		condenser:  condenser,
		tokenLimit: tokenLimit,
	}
}

func (b *SessionBuffer) state(userID, sessionID string) *sessionState {
	b.mu.RLock()
	st, ok := b.sessions[sessionID]
	b.mu.RUnlock()
	if ok {
		return st
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if st, ok = b.sessions[sessionID]; ok {
		return st
	}
	st = &sessionState{userID: userID}
	b.sessions[sessionID] = st
	return st
}

// Append records one user/assistant exchange in the session transcript,
// condensing it when it exceeds the token budget.
func (b *SessionBuffer) Append(userID, sessionID, userMessage, aiResponse string) {
	st := b.state(userID, sessionID)

	st.mu.Lock()
	defer st.mu.Unlock()
	st.messages = append(st.messages,
		models.Message{Role: "user", Content: userMessage},
		models.Message{Role: "assistant", Content: aiResponse},
	)

	total := 0
	for _, m := range st.messages {
		total += approxTokens(m.Content)
	}
	if total > b.tokenLimit {
		st.messages = b.condenser.Condense(st.messages, b.tokenLimit)
	}
}

// Recent returns a copy of the last maxTurns exchanges (2 messages each) of
// the session, oldest first. A session owned by a different user reads as
// empty.
func (b *SessionBuffer) Recent(userID, sessionID string, maxTurns int) []models.Message {
	b.mu.RLock()
	st, ok := b.sessions[sessionID]
	b.mu.RUnlock()
	if !ok || st.userID != userID || maxTurns <= 0 {
		return nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	n := maxTurns * 2
	if n > len(st.messages) {
		n = len(st.messages)
	}
	out := make([]models.Message, n)
	copy(out, st.messages[len(st.messages)-n:])
	return out
}

// DropSession discards one session transcript.
func (b *SessionBuffer) DropSession(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, sessionID)
}

// DropUser discards every session owned by the user.
func (b *SessionBuffer) DropUser(userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, st := range b.sessions {
		if st.userID == userID {
			delete(b.sessions, id)
		}
	}
}
