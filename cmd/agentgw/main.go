package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ai-agent-gateway/internal/api"
	"ai-agent-gateway/internal/config"
	"ai-agent-gateway/internal/repository"
	"ai-agent-gateway/internal/service"
	"ai-agent-gateway/pkg/llm/ollama"
	"ai-agent-gateway/pkg/websearch"
)

var (
	configPath = flag.String("config", "", "Path to config file")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	var logger *zap.Logger
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Initialize session store
	db, err := repository.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	sessionRepo := repository.NewSessionRepository(db, cfg.Database.SessionTTL)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	sessionRepo.StartSweeper(sweepCtx, time.Hour, func(removed int64, err error) {
		if err != nil {
			logger.Warn("Session sweep failed", zap.Error(err))
		} else if removed > 0 {
			logger.Info("Swept expired sessions", zap.Int64("removed", removed))
		}
	})

	// Initialize external providers
	provider := ollama.New(cfg.Ollama.BaseURL, cfg.Ollama.Model, cfg.Ollama.Timeout)

	searcher, err := websearch.NewWebSearcher(websearch.Provider(cfg.Search.Provider), cfg.Search.APIKey)
	if err != nil {
		logger.Fatal("Failed to initialize search provider", zap.Error(err))
	}

	// Initialize agent service
	agentService := service.NewAgentService(cfg, logger, provider, searcher, sessionRepo)

	// Setup router
	router := api.SetupRouter(agentService, api.RouterConfig{
		AllowOrigins: cfg.Server.AllowOrigins,
	})

	// Create HTTP server. WriteTimeout is generous because chat streams stay
	// open for the full generation.
	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Ollama.Timeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting agent gateway",
			zap.String("address", cfg.Address()),
			zap.String("mode", cfg.Server.Mode),
			zap.String("ollama", cfg.Ollama.BaseURL),
			zap.String("search_provider", cfg.Search.Provider),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
