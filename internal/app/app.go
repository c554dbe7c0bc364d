package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/studium/internal/common"
	"github.com/ternarybob/studium/internal/handlers"
	"github.com/ternarybob/studium/internal/ingest"
	"github.com/ternarybob/studium/internal/interfaces"
	"github.com/ternarybob/studium/internal/services/embeddings"
	"github.com/ternarybob/studium/internal/services/index"
	"github.com/ternarybob/studium/internal/services/llm"
	"github.com/ternarybob/studium/internal/services/rag"
	"github.com/ternarybob/studium/internal/services/search"
	"github.com/ternarybob/studium/internal/services/session"
	"github.com/ternarybob/studium/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage layer
	DB            *badger.BadgerDB
	CourseStorage *badger.CourseStorage

	// Retrieval pipeline
	EmbeddingService interfaces.EmbeddingService
	Index            *index.MemoryIndex
	Chunker          *ingest.Chunker
	ToolManager      *search.ToolManager

	// Conversation pipeline
	LLMService     interfaces.LLMService
	SessionManager *session.Manager
	RAGService     *rag.Service

	// HTTP handlers
	APIHandler    *handlers.APIHandler
	QueryHandler  *handlers.QueryHandler
	CourseHandler *handlers.CourseHandler
}

// New initializes the application with all dependencies. Course documents
// from the configured docs directory are ingested before the caller starts
// serving requests.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		app.DB.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.loadCourses(); err != nil {
		app.DB.Close()
		return nil, fmt.Errorf("failed to load course documents: %w", err)
	}

	app.initHandlers()

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	db, err := badger.NewBadgerDB(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to open badger store: %w", err)
	}

	a.DB = db
	a.DB.StartGC(5 * time.Minute)
	a.CourseStorage = badger.NewCourseStorage(db, a.Logger)

	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

// initServices initializes business services in dependency order:
// embedder, vector index, search tool, LLM client, sessions, RAG facade.
func (a *App) initServices() error {
	embedder, err := a.newEmbeddingService()
	if err != nil {
		return err
	}
	a.EmbeddingService = embedder

	a.Index = index.NewMemoryIndex(embedder, a.CourseStorage, a.Config.Search.MinTitleSimilarity, a.Logger)
	if err := a.Index.Load(context.Background()); err != nil {
		return fmt.Errorf("failed to load persisted index: %w", err)
	}

	a.Chunker, err = ingest.NewChunker(a.Config.Ingest.ChunkSize, a.Config.Ingest.ChunkOverlap)
	if err != nil {
		return fmt.Errorf("invalid chunker configuration: %w", err)
	}

	a.ToolManager = search.NewToolManager()
	searchTool := search.NewCourseSearchTool(a.Index, a.Config.Search.MaxResults, a.Logger)
	if err := a.ToolManager.Register(searchTool); err != nil {
		return err
	}

	llmService, err := llm.NewClaudeService(&a.Config.Claude, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create claude service: %w", err)
	}
	a.LLMService = llmService

	a.SessionManager = session.NewManager(a.Config.Sessions.MaxHistory, a.Config.Sessions.MaxSessions, a.Logger)

	generator := rag.NewAnswerGenerator(a.LLMService, a.Logger)
	a.RAGService = rag.NewService(a.Chunker, a.Index, a.ToolManager, generator, a.SessionManager, a.Logger)

	a.Logger.Info().
		Str("embeddings", a.EmbeddingService.ModelName()).
		Str("model", a.Config.Claude.Model).
		Msg("Services initialized")

	return nil
}

// newEmbeddingService selects the configured embedding provider. An openai
// provider without an API key falls back to the local embedder so the
// service still starts in development.
func (a *App) newEmbeddingService() (interfaces.EmbeddingService, error) {
	switch a.Config.Embeddings.Provider {
	case "openai":
		if a.Config.Embeddings.APIKey == "" {
			a.Logger.Warn().Msg("No OpenAI API key configured, falling back to local embeddings")
			return embeddings.NewLocalService(a.Config.Embeddings.Dimensions, a.Logger)
		}
		return embeddings.NewOpenAIService(a.Config, a.Logger)
	case "local":
		return embeddings.NewLocalService(a.Config.Embeddings.Dimensions, a.Logger)
	default:
		return nil, fmt.Errorf("unknown embeddings provider: %s", a.Config.Embeddings.Provider)
	}
}

// loadCourses ingests the configured docs directory. A missing directory
// is not fatal, the service starts with an empty catalog.
func (a *App) loadCourses() error {
	dir := a.Config.Ingest.DocsDir
	if dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		a.Logger.Warn().Str("dir", dir).Msg("Docs directory not found, starting with empty catalog")
		return nil
	}

	courses, chunks, err := a.RAGService.AddCourseFolder(context.Background(), dir, a.Config.Ingest.ClearOnStartup)
	if err != nil {
		return err
	}

	a.Logger.Info().
		Int("courses_added", courses).
		Int("chunks_added", chunks).
		Int("courses_total", a.Index.CourseCount()).
		Msg("Course ingestion complete")

	return nil
}

func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler()
	a.QueryHandler = handlers.NewQueryHandler(a.RAGService, a.Logger)
	a.CourseHandler = handlers.NewCourseHandler(a.RAGService, a.Logger)
}

// Close releases application resources
func (a *App) Close() error {
	a.Logger.Info().Msg("Shutting down application...")

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close badger store")
			return err
		}
	}

	a.Logger.Info().Msg("Application shutdown complete")
	return nil
}
