package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/graphweave/graphweave/internal/server/middleware"
	"github.com/graphweave/graphweave/internal/util"
	"github.com/graphweave/graphweave/pkg/ai"
	"github.com/graphweave/graphweave/pkg/ai/ollama"
	"github.com/graphweave/graphweave/pkg/ai/openai"
	"github.com/graphweave/graphweave/pkg/engine"
	"github.com/graphweave/graphweave/pkg/logger"
	"github.com/graphweave/graphweave/pkg/store"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

func Init() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	extractor, embedder := buildProviders()

	sessionStore := store.NewStore(store.StoreParams{
		CleanupInterval: time.Duration(util.GetEnvInt("SESSION_CLEANUP_SEC", 60)) * time.Second,
	})
	eng, err := engine.New(engine.Params{
		Store:       sessionStore,
		MaxParallel: util.GetEnvInt("INDEX_PARALLEL", 8),
	})
	if err != nil {
		logger.Fatal("Failed to create engine", "err", err)
	}
	defer eng.Close()

	app := &middleware.App{
		Engine: eng,
		BaseConfig: store.SessionConfig{
			ChunkSize:             util.GetEnvInt("CHUNK_SIZE", store.DefaultChunkSize),
			ChunkOverlap:          util.GetEnvInt("CHUNK_OVERLAP", store.DefaultChunkOverlap),
			AutoDetectCommunities: util.GetEnvBool("AUTO_DETECT_COMMUNITIES", true),
			Extractor:             extractor,
			Embedder:              embedder,
			IdleTTL:               time.Duration(util.GetEnvInt("SESSION_IDLE_TTL_SEC", 3600)) * time.Second,
		},
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.AppContextMiddleware(app))
	e.Use(echomw.CORS())
	e.Use(echomw.RequestLogger())
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit("64M"))

	RegisterRoutes(e)

	go func() {
		port := util.GetEnvString("PORT", "8080")
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}

// buildProviders selects the extraction/embedding backends from the
// environment. With no provider configured the deterministic toy
// implementations are used, which keeps local development credential
// free.
func buildProviders() (ai.Extractor, ai.Embedder) {
	switch util.GetEnvString("AI_PROVIDER", "") {
	case "openai":
		client, err := openai.New(openai.Params{
			BaseURL:               util.GetEnv("AI_BASE_URL"),
			APIKey:                util.GetEnv("AI_API_KEY"),
			ExtractionModel:       util.GetEnv("AI_EXTRACT_MODEL"),
			EmbeddingModel:        util.GetEnv("AI_EMBED_MODEL"),
			Dimensions:            util.GetEnvInt("AI_EMBED_DIM", 0),
			MaxConcurrentRequests: int64(util.GetEnvInt("AI_PARALLEL_REQ", 8)),
		})
		if err != nil {
			logger.Fatal("Failed to create OpenAI client", "err", err)
		}
		return client, ai.NewCachedEmbedder(client, util.GetEnvInt("EMBED_CACHE_SIZE", 10000))
	case "ollama":
		client, err := ollama.New(ollama.Params{
			BaseURL:               util.GetEnv("AI_BASE_URL"),
			APIKey:                util.GetEnv("AI_API_KEY"),
			ExtractionModel:       util.GetEnv("AI_EXTRACT_MODEL"),
			EmbeddingModel:        util.GetEnv("AI_EMBED_MODEL"),
			Dimensions:            util.GetEnvInt("AI_EMBED_DIM", 0),
			MaxConcurrentRequests: int64(util.GetEnvInt("AI_PARALLEL_REQ", 2)),
		})
		if err != nil {
			logger.Fatal("Failed to create Ollama client", "err", err)
		}
		return client, ai.NewCachedEmbedder(client, util.GetEnvInt("EMBED_CACHE_SIZE", 10000))
	default:
		logger.Warn("No AI provider configured, using toy extractor and embedder")
		return ai.RegexExtractor{}, ai.NewHashEmbedder(util.GetEnvInt("AI_EMBED_DIM", 64))
	}
}
