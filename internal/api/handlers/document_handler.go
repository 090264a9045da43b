package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	middleware "github.com/markdave123-py/Memora/internal/api/middlewares"
	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/services"
)

const maxUploadBytes = 10 << 20 // 10 MB

type DocumentHandler struct {
	memory *services.MemoryService
}

func NewDocumentHandler(memory *services.MemoryService) *DocumentHandler {
	return &DocumentHandler{memory: memory}
}

// Upload ingests a pdf, docx or txt file into the caller's document
// namespace.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "file too large or malformed upload", http.StatusRequestEntityTooLarge)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "invalid file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	fileType, ok := allowedFileType(filename)
	if !ok {
		http.Error(w, "unsupported file type: use pdf, docx or txt", http.StatusUnsupportedMediaType)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "read upload failed", http.StatusBadRequest)
		return
	}

	result, err := h.memory.IngestDocument(r.Context(), data, filename, fileType, userID)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrEmptyContent), errors.Is(err, core.ErrUnsupportedType), errors.Is(err, core.ErrDecode):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, result)
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	documents, err := h.memory.ListDocuments(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, documents)
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	documentID := chi.URLParam(r, "id")
	if err := h.memory.DeleteDocument(r.Context(), userID, documentID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			http.Error(w, "document not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"deleted": documentID})
}

type searchRequest struct {
	Query       string   `json:"query"`
	DocumentIDs []string `json:"document_ids"`
	TopK        int      `json:"top_k"`
}

// Search runs a semantic query over the caller's documents, optionally
// restricted to specific document ids.
func (h *DocumentHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}
	if req.TopK <= 0 {
		req.TopK = 5
	}

	var hits any
	if len(req.DocumentIDs) > 0 {
		hits = h.memory.SearchSpecificDocuments(r.Context(), userID, req.Query, req.DocumentIDs, req.TopK)
	} else {
		hits = h.memory.SearchDocuments(r.Context(), userID, req.Query, req.TopK)
	}
	writeJSON(w, hits)
}

func allowedFileType(filename string) (string, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "pdf", true
	case ".docx", ".doc":
		return "docx", true
	case ".txt":
		return "txt", true
	default:
		return "", false
	}
}
