package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	middleware "github.com/markdave123-py/Memora/internal/api/middlewares"
	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/services"
)

const chatSystemPrompt = "You are a helpful assistant with long-term memory. " +
	"The conversation below includes relevant past exchanges and, when present, " +
	"excerpts from the user's documents. Ground your answer in that context and " +
	"say so when it does not contain the answer."

type ChatHandler struct {
	memory *services.MemoryService
	llm    core.LLMProvider
}

func NewChatHandler(memory *services.MemoryService, llm core.LLMProvider) *ChatHandler {
	return &ChatHandler{memory: memory, llm: llm}
}

type chatRequest struct {
	Message     string   `json:"message"`
	SessionID   string   `json:"session_id"`
	DocumentIDs []string `json:"document_ids"`
}

type chatResponse struct {
	UserMessage string `json:"user_message"`
	AIResponse  string `json:"ai_response"`
	SessionID   string `json:"session_id"`
	Timestamp   string `json:"timestamp"`
}

// Chat answers one user message with memory-augmented context and records
// the exchange.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := middleware.UserID(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	window := h.memory.GetRelevantContext(ctx, userID, req.SessionID, req.Message, req.DocumentIDs)

	var sb strings.Builder
	for _, m := range window {
		sb.WriteString(m.Role)
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	userPrompt := fmt.Sprintf("Context:\n%s\nUser: %s", sb.String(), req.Message)

	answer, err := h.llm.Generate(ctx, chatSystemPrompt, userPrompt)
	if err != nil {
		http.Error(w, fmt.Sprintf("LLM failed: %v", err), http.StatusInternalServerError)
		return
	}

	sessionID := h.memory.AddConversationTurn(ctx, userID, req.SessionID, req.Message, answer)

	writeJSON(w, chatResponse{
		UserMessage: req.Message,
		AIResponse:  answer,
		SessionID:   sessionID,
		Timestamp:   time.Now().Format(time.RFC3339),
	})
}
