package memory

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/models"
)

func storeTurnAt(t *testing.T, store core.VectorStore, userID, sessionID, userMsg string, at time.Time) {
	t.Helper()
	turn := models.ConversationTurn{
		ID:          fmt.Sprintf("turn-%s-%d", sessionID, at.UnixNano()),
		UserID:      userID,
		SessionID:   sessionID,
		UserMessage: userMsg,
		AIResponse:  "noted",
		Timestamp:   at,
	}
	require.NoError(t, store.Upsert(context.Background(), core.ConversationNamespace(userID), core.NewTurnRecord(turn, []float32{1, 0, 0})))
}

func TestListSessionsGroupsBySessionID(t *testing.T) {
	store := newFakeStore()
	now := time.Now().Truncate(time.Second)
	storeTurnAt(t, store, "u1", "s1", "first question in s1", now.Add(-2*time.Hour))
	storeTurnAt(t, store, "u1", "s1", "second question in s1", now.Add(-1*time.Hour))
	storeTurnAt(t, store, "u1", "s2", "only question in s2", now)

	sessions := NewConversationIndex(store).ListSessions(context.Background(), "u1", 0)

	require.Len(t, sessions, 2)
	assert.Equal(t, "s2", sessions[0].SessionID)
	assert.Equal(t, "s1", sessions[1].SessionID)
	assert.Equal(t, 2, sessions[1].MessageCount)
	assert.Equal(t, "first question in s1", sessions[1].Title)
}

func TestListSessionsHourFallback(t *testing.T) {
	store := newFakeStore()
	base := time.Date(2026, 3, 14, 9, 5, 0, 0, time.UTC)
	storeTurnAt(t, store, "u1", "", "untracked question one", base)
	storeTurnAt(t, store, "u1", "", "untracked question two", base.Add(10*time.Minute))
	storeTurnAt(t, store, "u1", "", "different hour question", base.Add(2*time.Hour))

	sessions := NewConversationIndex(store).ListSessions(context.Background(), "u1", 0)

	require.Len(t, sessions, 2)
	for _, s := range sessions {
		assert.True(t, strings.HasPrefix(s.SessionID, "hour:"))
	}
	assert.Equal(t, "different hour question", sessions[0].Title)
	assert.Equal(t, 2, sessions[1].MessageCount)
}

func TestListSessionsLimit(t *testing.T) {
	store := newFakeStore()
	now := time.Now()
	for i := 0; i < 5; i++ {
		storeTurnAt(t, store, "u1", fmt.Sprintf("s%d", i), "a question here", now.Add(time.Duration(i)*time.Minute))
	}

	sessions := NewConversationIndex(store).ListSessions(context.Background(), "u1", 3)

	require.Len(t, sessions, 3)
	assert.Equal(t, "s4", sessions[0].SessionID)
}

func TestListSessionsTitleClipped(t *testing.T) {
	store := newFakeStore()
	long := strings.Repeat("abcdefghij", 10)
	storeTurnAt(t, store, "u1", "s1", long, time.Now())

	sessions := NewConversationIndex(store).ListSessions(context.Background(), "u1", 0)

	require.Len(t, sessions, 1)
	assert.Len(t, []rune(sessions[0].Title), titleChars+3)
	assert.Len(t, []rune(sessions[0].Preview), previewLen+3)
}

func TestListSessionsEmptyNamespace(t *testing.T) {
	sessions := NewConversationIndex(newFakeStore()).ListSessions(context.Background(), "u1", 0)
	assert.Empty(t, sessions)
}
