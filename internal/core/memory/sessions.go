package memory

import (
	"context"
	"sort"
	"time"

	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/models"
)

const (
	sessionSampleSize   = 100
	defaultSessionLimit = 20
	titleChars          = 60
	previewLen          = 80
)

// ConversationIndex derives the user's session list from the stored turns.
// Sessions are not persisted as first-class rows; they are reconstructed by
// sampling the conversation namespace and grouping by session id.
type ConversationIndex struct {
	store core.VectorStore
}

func NewConversationIndex(store core.VectorStore) *ConversationIndex {
	return &ConversationIndex{store: store}
}

// ListSessions returns up to limit sessions, most recently active first.
func (x *ConversationIndex) ListSessions(ctx context.Context, userID string, limit int) []models.Session {
	if limit <= 0 {
		limit = defaultSessionLimit
	}

	matches := x.store.Sample(ctx, core.ConversationNamespace(userID), sessionSampleSize, nil)

	groups := make(map[string][]core.Match)
	for _, m := range matches {
		if m.Meta.Kind != core.KindTurn {
			continue
		}
		groups[sessionKey(m.Meta)] = append(groups[sessionKey(m.Meta)], m)
	}

	sessions := make([]models.Session, 0, len(groups))
	for key, turns := range groups {
		sessions = append(sessions, buildSession(userID, key, turns))
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastMessageAt.After(sessions[j].LastMessageAt)
	})
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions
}

// sessionKey groups a turn by its session id. Turns written before session
// tracking carry no id; they are bucketed by the hour they happened in so
// old history still shows up as coherent sessions.
func sessionKey(meta core.Metadata) string {
	if meta.SessionID != "" {
		return meta.SessionID
	}
	ts, err := time.Parse(time.RFC3339, meta.Timestamp)
	if err != nil {
		return "hour:unknown"
	}
	return "hour:" + ts.Truncate(time.Hour).Format("2006-01-02T15")
}

func buildSession(userID, key string, turns []core.Match) models.Session {
	s := models.Session{SessionID: key, UserID: userID, MessageCount: len(turns)}

	var earliest core.Match
	for _, t := range turns {
		ts, err := time.Parse(time.RFC3339, t.Meta.Timestamp)
		if err != nil {
			continue
		}
		if s.CreatedAt.IsZero() || ts.Before(s.CreatedAt) {
			s.CreatedAt = ts
			earliest = t
		}
		if ts.After(s.LastMessageAt) {
			s.LastMessageAt = ts
		}
	}
	if earliest.Meta.UserMessage == "" && len(turns) > 0 {
		earliest = turns[0]
	}

	s.Title = clip(earliest.Meta.UserMessage, titleChars)
	s.Preview = clip(earliest.Meta.UserMessage, previewLen)
	return s
}

func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
