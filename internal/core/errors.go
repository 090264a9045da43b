package core

import "errors"

// Failure taxonomy for ingestion and retrieval. Per-chunk and per-query
// failures are counted and logged by their callers; only whole-document
// failures surface from an ingestion, and retrieval failures always degrade
// to empty results instead of propagating to the chat caller.
var (
	// ErrExtraction indicates an unsupported, corrupt or unreadable file.
	ErrExtraction = errors.New("text extraction failed")

	// ErrUnsupportedType indicates a file type the pipeline does not handle.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrDecode indicates a text file that none of the known encodings could decode.
	ErrDecode = errors.New("unable to decode text file")

	// ErrEmptyContent indicates a document with no usable text.
	ErrEmptyContent = errors.New("no meaningful text content found in document")

	// ErrChunking indicates that chunking produced no chunks.
	ErrChunking = errors.New("failed to create chunks from document text")

	// ErrEmbedding indicates a per-item embedding failure.
	ErrEmbedding = errors.New("embedding failed")

	// ErrStoreUnavailable indicates a vector index connectivity or auth failure.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrNoChunksStored indicates that no chunk of a document could be stored.
	ErrNoChunksStored = errors.New("failed to store any chunks from the document")

	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the record already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidCredentials indicates a wrong email/password combination.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
