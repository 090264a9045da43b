package handlers

import (
	"net/http"
	"strconv"

	middleware "github.com/markdave123-py/Memora/internal/api/middlewares"
	"github.com/markdave123-py/Memora/internal/services"
)

type ConversationHandler struct {
	memory *services.MemoryService
}

func NewConversationHandler(memory *services.MemoryService) *ConversationHandler {
	return &ConversationHandler{memory: memory}
}

// List returns the caller's sessions, most recently active first.
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	writeJSON(w, h.memory.ListConversations(r.Context(), userID, limit))
}

// DeleteMe erases every trace of the caller: transcripts, turn vectors,
// document chunks, raw files and registry records.
func (h *ConversationHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.memory.DeleteUserData(r.Context(), userID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"deleted": userID})
}
