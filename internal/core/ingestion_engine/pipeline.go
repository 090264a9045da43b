package ingestion_engine

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/models"
)

const (
	embedTimeout = 30 * time.Second
	maxPreviews  = 5
	previewChars = 100
)

// DocumentProcessor extracts, chunks, embeds and stores a document in the
// owner's document namespace. A chunk whose embedding or write fails is
// skipped and counted; the document is only rejected when nothing at all
// could be stored.
type DocumentProcessor struct {
	embedder core.EmbeddingProvider
	store    core.VectorStore
	cfg      *IngestConfig
}

func NewDocumentProcessor(embedder core.EmbeddingProvider, store core.VectorStore, cfg *IngestConfig) *DocumentProcessor {
	if cfg == nil {
		cfg = DefaultIngestConfig()
	}
	return &DocumentProcessor{embedder: embedder, store: store, cfg: cfg}
}

func (p *DocumentProcessor) Process(
	ctx context.Context,
	data []byte,
	filename string,
	userID string,
	fileType string,
	documentID string,
) (*models.IngestResult, error) {
	text, err := ExtractText(data, fileType)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(text)) < 10 {
		return nil, core.ErrEmptyContent
	}

	sum := md5.Sum(data)
	fileHash := hex.EncodeToString(sum[:])

	chunks, err := collectChunks(ctx, text, p.cfg)
	if err != nil {
		return nil, fmt.Errorf("chunk document: %w", err)
	}
	if len(chunks) == 0 {
		return nil, core.ErrChunking
	}

	namespace := core.DocumentNamespace(userID)

	var (
		stored   int
		failed   int
		previews []models.ChunkPreview
	)
	for _, c := range chunks {
		vec, err := p.embedChunk(ctx, c.Text)
		if err != nil {
			log.Printf("DocumentProcessor: embed chunk %d of %s failed: %v", c.Index, documentID, err)
			failed++
			continue
		}

		rec := core.NewChunkRecord(documentID, c.Index, userID, filename, fileType, fileHash, c.Text, vec)
		if err := p.store.Upsert(ctx, namespace, rec); err != nil {
			log.Printf("DocumentProcessor: store chunk %d of %s failed: %v", c.Index, documentID, err)
			failed++
			continue
		}

		stored++
		if len(previews) < maxPreviews {
			previews = append(previews, models.ChunkPreview{
				ChunkID: rec.ID,
				Preview: preview(c.Text),
			})
		}
	}

	if stored == 0 {
		return nil, core.ErrNoChunksStored
	}

	rate := float64(stored) / float64(len(chunks))
	status := models.StatusSuccess
	if rate <= 0.5 {
		status = models.StatusPartialSuccess
	}

	return &models.IngestResult{
		DocumentID:   documentID,
		Filename:     filename,
		FileType:     fileType,
		FileHash:     fileHash,
		TotalChunks:  len(chunks),
		StoredChunks: stored,
		FailedChunks: failed,
		SuccessRate:  math.Round(rate*100) / 100,
		TextLength:   len(text),
		Previews:     previews,
		Status:       status,
	}, nil
}

func (p *DocumentProcessor) embedChunk(ctx context.Context, text string) ([]float32, error) {
	embedCtx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	vecs, err := p.embedder.EmbedTexts(embedCtx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%w: got %d vectors for one text", core.ErrEmbedding, len(vecs))
	}
	return vecs[0], nil
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewChars {
		return text
	}
	return string(runes[:previewChars]) + "..."
}
