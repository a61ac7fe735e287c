package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medsearch/internal/cache"
	"medsearch/internal/config"
	"medsearch/internal/handler"
	"medsearch/internal/logger"
	"medsearch/internal/repository"
	"medsearch/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "medsearch: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)
	defer func() { _ = log.Sync() }()
	for _, w := range cfg.Warnings {
		log.Warn("configuration", map[string]interface{}{"warning": w})
	}

	log.Info("starting medsearch", map[string]interface{}{
		"version":    Version,
		"build_time": BuildTime,
		"git_commit": GitCommit,
	})

	gin.SetMode(cfg.Server.GinMode)

	// Initialize database connection
	repo, err := repository.NewPostgresRepository(
		cfg.GetPostgreSQLDSN(),
		cfg.PostgreSQL.MaxConnections,
		cfg.PostgreSQL.MaxIdleConnections,
	)
	if err != nil {
		return err
	}
	defer repo.Close()
	log.Info("connected to PostgreSQL", nil)

	openaiClient := service.NewOpenAIClient(&cfg.OpenAI, log)
	if !cfg.OpenAI.Enabled {
		log.Warn("OpenAI is disabled; searches will fail until OPENAI_API_KEY is set", nil)
	}

	embedder, closeCache := buildEmbedder(cfg, openaiClient, log)
	defer closeCache()

	// Initialize services
	understanding := service.NewQueryUnderstanding(
		service.NewLLMClassifier(openaiClient, log),
		service.NewRuleClassifier(),
		log,
	)
	dispatcher := service.NewDispatcher(embedder, repo, cfg.Search, log)
	ranker := service.NewRanker(cfg.Ranking.WeightSimilarity, cfg.Ranking.WeightRating)
	searchService := service.NewSearchService(understanding, dispatcher, ranker, repo, log)

	// Initialize handlers
	searchHandler := handler.NewSearchHandler(searchService, cfg.Search.RequestTimeout, log)
	feedbackHandler := handler.NewFeedbackHandler(searchService, log)

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	corsConfig.AllowMethods = cfg.Server.AllowedMethods
	corsConfig.AllowHeaders = cfg.Server.AllowedHeaders
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status, code := "healthy", http.StatusOK
		if err := repo.Ping(ctx); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":     status,
			"service":    "medsearch",
			"version":    Version,
			"ai_enabled": cfg.OpenAI.Enabled,
		})
	})

	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/search", searchHandler.Search)
		apiV1.POST("/chat", searchHandler.Chat)
		apiV1.POST("/chat/stream", searchHandler.ChatStream)
		apiV1.POST("/feedback", feedbackHandler.Submit)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", map[string]interface{}{"addr": addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		log.Info("shutting down server", map[string]interface{}{"signal": sig.String()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", map[string]interface{}{"error": err})
	}
	searchService.Wait()

	log.Info("server stopped", nil)
	return nil
}

// buildEmbedder wraps the embedding client in the LRU cache and, when
// REDIS_ADDRESS is set and reachable, the shared Redis cache.
func buildEmbedder(cfg *config.Config, client *service.OpenAIClient, log logger.Logger) (service.Embedder, func()) {
	noop := func() {}
	if !cfg.Cache.Enabled {
		return client, noop
	}

	var remote service.RemoteCache
	closeFn := noop
	if cfg.Cache.RedisAddress != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		rc, err := cache.NewRedis(ctx, cfg.Cache)
		if err != nil {
			log.Warn("redis unavailable, using in-process embedding cache only", map[string]interface{}{"error": err})
		} else {
			remote = rc
			closeFn = func() { _ = rc.Close() }
			log.Info("redis embedding cache enabled", map[string]interface{}{"addr": cfg.Cache.RedisAddress})
		}
	}

	return service.NewCachedEmbedder(client, cfg.Cache.LRUSize, remote, cfg.Cache.TTL, cfg.OpenAI.EmbeddingModel, log), closeFn
}
