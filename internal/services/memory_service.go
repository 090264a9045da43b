package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/core/ingestion_engine"
	"github.com/markdave123-py/Memora/internal/core/memory"
	"github.com/markdave123-py/Memora/internal/models"
)

const deleteScanLimit = 10000

// MemoryService is the public surface of the memory layer. It owns turn
// recording, document ingestion and retrieval, context assembly, session
// listing and the two deletion paths.
type MemoryService struct {
	buffer    *memory.SessionBuffer
	assembler *memory.ContextAssembler
	index     *memory.ConversationIndex
	recorder  *memory.TurnRecorder
	processor *ingestion_engine.DocumentProcessor
	retriever *ingestion_engine.DocumentRetriever
	store     core.VectorStore
	registry  core.DocumentRegistry
	storage   core.ObjectClient // nil disables raw-file retention
}

func NewMemoryService(
	buffer *memory.SessionBuffer,
	assembler *memory.ContextAssembler,
	index *memory.ConversationIndex,
	recorder *memory.TurnRecorder,
	processor *ingestion_engine.DocumentProcessor,
	retriever *ingestion_engine.DocumentRetriever,
	store core.VectorStore,
	registry core.DocumentRegistry,
	storage core.ObjectClient,
) *MemoryService {
	return &MemoryService{
		buffer:    buffer,
		assembler: assembler,
		index:     index,
		recorder:  recorder,
		processor: processor,
		retriever: retriever,
		store:     store,
		registry:  registry,
		storage:   storage,
	}
}

// AddConversationTurn records one exchange. The session buffer is updated
// before the vector write is scheduled, so the turn is immediately visible
// to GetRelevantContext for the same session. Returns the session id, newly
// generated when none was supplied.
func (s *MemoryService) AddConversationTurn(ctx context.Context, userID, sessionID, userMessage, aiResponse string) string {
	if sessionID == "" {
		sessionID = uuid.NewString()[:8]
	}

	s.buffer.Append(userID, sessionID, userMessage, aiResponse)

	s.recorder.Enqueue(models.ConversationTurn{
		ID:          uuid.NewString(),
		UserID:      userID,
		SessionID:   sessionID,
		UserMessage: userMessage,
		AIResponse:  aiResponse,
		Timestamp:   time.Now(),
	})
	return sessionID
}

// GetRelevantContext assembles the message window for one incoming message.
func (s *MemoryService) GetRelevantContext(ctx context.Context, userID, sessionID, message string, documentIDs []string) []models.Message {
	return s.assembler.Assemble(ctx, userID, sessionID, message, documentIDs)
}

// IngestDocument extracts, chunks, embeds and indexes an uploaded file, and
// records it in the document registry. The raw file is retained in object
// storage when a client is configured; a retention failure is logged but
// never fails the ingest.
func (s *MemoryService) IngestDocument(ctx context.Context, data []byte, filename, fileType, userID string) (*models.IngestResult, error) {
	documentID := fmt.Sprintf("doc_%s_%d", userID, time.Now().Unix())

	var storageKey string
	if s.storage != nil {
		key := objectKey(userID, documentID, filename)
		if _, err := s.storage.UploadFile(ctx, key, data, contentTypeFor(fileType)); err != nil {
			log.Printf("MemoryService: retain raw file for %s failed: %v", documentID, err)
		} else {
			storageKey = key
		}
	}

	result, err := s.processor.Process(ctx, data, filename, userID, fileType, documentID)
	if err != nil {
		return nil, err
	}

	rec := models.DocumentRecord{
		DocumentID:   documentID,
		UserID:       userID,
		Filename:     filename,
		FileType:     fileType,
		FileHash:     result.FileHash,
		StorageKey:   storageKey,
		TotalChunks:  result.TotalChunks,
		StoredChunks: result.StoredChunks,
		Status:       result.Status,
		CreatedAt:    time.Now(),
	}
	if err := s.registry.Put(ctx, rec); err != nil {
		log.Printf("MemoryService: register document %s failed: %v", documentID, err)
	}

	return result, nil
}

// SearchDocuments queries all of the user's documents. Retrieval failures
// degrade to an empty result.
func (s *MemoryService) SearchDocuments(ctx context.Context, userID, query string, topK int) []models.DocumentHit {
	hits, err := s.retriever.Search(ctx, query, userID, topK)
	if err != nil {
		log.Printf("MemoryService: document search failed for %s: %v", userID, err)
		return nil
	}
	return hits
}

// SearchSpecificDocuments queries only the given documents.
func (s *MemoryService) SearchSpecificDocuments(ctx context.Context, userID, query string, documentIDs []string, topK int) []models.DocumentHit {
	hits, err := s.retriever.SearchSpecific(ctx, query, userID, documentIDs, topK)
	if err != nil {
		log.Printf("MemoryService: specific document search failed for %s: %v", userID, err)
		return nil
	}
	return hits
}

// ListConversations returns the user's sessions, most recently active first.
func (s *MemoryService) ListConversations(ctx context.Context, userID string, limit int) []models.Session {
	return s.index.ListSessions(ctx, userID, limit)
}

// ListDocuments returns the user's registered documents.
func (s *MemoryService) ListDocuments(ctx context.Context, userID string) ([]models.DocumentRecord, error) {
	return s.registry.List(ctx, userID)
}

// DeleteDocument removes a document the user owns: its registry record
// first, then its chunks, then the retained raw file. A failure after the
// registry delete leaves orphaned chunks; they are invisible to listing and
// the error tells the caller the clean-up was incomplete.
func (s *MemoryService) DeleteDocument(ctx context.Context, userID, documentID string) error {
	rec, err := s.registry.Get(ctx, userID, documentID)
	if err != nil {
		return err
	}
	if err := s.registry.Delete(ctx, userID, documentID); err != nil {
		return err
	}

	if err := s.deleteChunks(ctx, userID, documentID); err != nil {
		log.Printf("MemoryService: delete chunks of %s failed: %v", documentID, err)
		return fmt.Errorf("document unregistered but chunk removal failed: %w", err)
	}

	if s.storage != nil && rec.StorageKey != "" {
		if err := s.storage.DeleteFile(ctx, rec.StorageKey); err != nil {
			log.Printf("MemoryService: delete raw file %s failed: %v", rec.StorageKey, err)
		}
	}
	return nil
}

func (s *MemoryService) deleteChunks(ctx context.Context, userID, documentID string) error {
	namespace := core.DocumentNamespace(userID)
	filter := &core.Filter{Equals: map[string]string{core.FieldDocumentID: documentID}}

	matches := s.store.Sample(ctx, namespace, deleteScanLimit, filter)
	if len(matches) == 0 {
		return nil
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	return s.store.Delete(ctx, namespace, ids...)
}

// DeleteUserData erases everything the user owns: session buffers, both
// vector namespaces, retained raw files and registry records. Partial
// failures are joined so the caller sees every leg that needs a retry.
func (s *MemoryService) DeleteUserData(ctx context.Context, userID string) error {
	s.buffer.DropUser(userID)

	var errs []error

	if s.storage != nil {
		records, err := s.registry.List(ctx, userID)
		if err != nil {
			errs = append(errs, fmt.Errorf("list documents: %w", err))
		}
		for _, rec := range records {
			if rec.StorageKey == "" {
				continue
			}
			if err := s.storage.DeleteFile(ctx, rec.StorageKey); err != nil {
				log.Printf("MemoryService: delete raw file %s failed: %v", rec.StorageKey, err)
			}
		}
	}

	if err := s.store.DeleteAll(ctx, core.ConversationNamespace(userID)); err != nil {
		errs = append(errs, fmt.Errorf("delete conversations: %w", err))
	}
	if err := s.store.DeleteAll(ctx, core.DocumentNamespace(userID)); err != nil {
		errs = append(errs, fmt.Errorf("delete document chunks: %w", err))
	}
	if err := s.registry.DeleteUser(ctx, userID); err != nil {
		errs = append(errs, fmt.Errorf("delete registry records: %w", err))
	}

	return errors.Join(errs...)
}

// objectKey creates a consistent storage key layout.
func objectKey(userID, documentID, filename string) string {
	filename = strings.TrimSpace(filename)
	filename = strings.ReplaceAll(filename, " ", "_")
	return path.Join("users", userID, "documents", documentID, filename)
}

func contentTypeFor(fileType string) string {
	switch strings.ToLower(fileType) {
	case "pdf":
		return "application/pdf"
	case "docx", "doc":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "text/plain"
	}
}
