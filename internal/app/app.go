package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/markdave123-py/Memora/internal/config"
	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/core/ingestion_engine"
	"github.com/markdave123-py/Memora/internal/core/llm"
	"github.com/markdave123-py/Memora/internal/core/memory"
	"github.com/markdave123-py/Memora/internal/core/objectclient"
	"github.com/markdave123-py/Memora/internal/core/registry"
	"github.com/markdave123-py/Memora/internal/core/vectorstore"
	"github.com/markdave123-py/Memora/internal/services"
)

const recorderWorkers = 2

type App struct {
	Store    core.VectorStore
	Redis    *redis.Client
	Memory   *services.MemoryService
	Users    *services.UserService
	Recorder *memory.TurnRecorder
	Server   *Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	store, err := newVectorStore(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Vector store initialized and ready.")

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(appCtx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	log.Println("Redis initialized and ready.")

	embedder, err := llm.NewGeminiEmbedder(appCtx, cfg.AIAPIKey, cfg.EmbedModel)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the embedder, %w", err)
	}
	llmProvider, err := llm.NewGeminiLLM(appCtx, cfg.AIAPIKey, cfg.GenModel)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the llm, %w", err)
	}

	// Raw-file retention is optional: without AWS credentials the service
	// runs with vector and registry storage only.
	var storage core.ObjectClient
	if cfg.AwsAccessKey != "" && cfg.AwsSecretKey != "" {
		s3, err := objectclient.NewS3Client(appCtx, cfg)
		if err != nil {
			return nil, err
		}
		storage = s3
		log.Println("Object client initialized and ready.")
	} else {
		log.Println("AWS credentials not set, raw-file retention disabled.")
	}

	docRegistry := registry.NewRedisRegistry(redisClient)
	userStore := registry.NewRedisUserStore(redisClient)

	buffer := memory.NewSessionBuffer(cfg.BufferTokenLimit, nil)
	retriever := ingestion_engine.NewDocumentRetriever(embedder, store)
	assembler := memory.NewContextAssembler(buffer, store, embedder, retriever, cfg.MaxRecentTurns, cfg.MaxRetrieved)
	index := memory.NewConversationIndex(store)
	recorder := memory.NewTurnRecorder(store, embedder)
	processor := ingestion_engine.NewDocumentProcessor(embedder, store, ingestion_engine.DefaultIngestConfig())

	memoryService := services.NewMemoryService(buffer, assembler, index, recorder, processor, retriever, store, docRegistry, storage)
	userService := services.NewUserService(userStore)

	recorder.Start(ctx, recorderWorkers)

	server := NewServer(cfg, memoryService, userService, llmProvider)

	return &App{
		Store:    store,
		Redis:    redisClient,
		Memory:   memoryService,
		Users:    userService,
		Recorder: recorder,
		Server:   server,
	}, nil
}

func newVectorStore(ctx context.Context, cfg *config.Config) (core.VectorStore, error) {
	switch cfg.VectorBackend {
	case "pgvector":
		return vectorstore.NewPgVectorStore(ctx, cfg.DatabaseURL)
	default:
		return vectorstore.NewChromemStore(cfg.EmbedDim), nil
	}
}

func (a *App) Close() {
	if a.Store != nil {
		_ = a.Store.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
}
