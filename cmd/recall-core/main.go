package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taskgenie-labs/recall-core/internal/adapters/driven/ai"
	"github.com/taskgenie-labs/recall-core/internal/adapters/driven/auth"
	"github.com/taskgenie-labs/recall-core/internal/adapters/driven/memindex"
	"github.com/taskgenie-labs/recall-core/internal/adapters/driven/memstore"
	"github.com/taskgenie-labs/recall-core/internal/adapters/driven/postgres"
	memoryqueue "github.com/taskgenie-labs/recall-core/internal/adapters/driven/queue/memory"
	redisqueue "github.com/taskgenie-labs/recall-core/internal/adapters/driven/queue/redis"
	"github.com/taskgenie-labs/recall-core/internal/adapters/driving/http"
	"github.com/taskgenie-labs/recall-core/internal/core/domain"
	"github.com/taskgenie-labs/recall-core/internal/core/ports/driven"
	"github.com/taskgenie-labs/recall-core/internal/core/ports/driving"
	"github.com/taskgenie-labs/recall-core/internal/core/services"
	"github.com/taskgenie-labs/recall-core/internal/normalisers"
	"github.com/taskgenie-labs/recall-core/internal/runtime"
	"github.com/taskgenie-labs/recall-core/internal/worker"
)

var version = "dev"

func main() {
	// Get run mode from environment (RUN_MODE) or command line arg
	mode := getEnv("RUN_MODE", "all")
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	// Configuration from environment
	jwtSecret := getEnv("JWT_SECRET", "development-secret-change-in-production")
	port := getEnvInt("PORT", 8080)
	databaseURL := getEnv("DATABASE_URL", "")
	redisURL := getEnv("REDIS_URL", "")
	contentSecret := getEnv("CONTENT_SECRET", "")

	authService := services.NewAuthService(auth.NewAdapter(jwtSecret), logger)

	// Token minting is an offline operation, no stores needed
	if mode == "mint-token" {
		mintToken(authService)
		return
	}

	logger.Info("recall-core starting", "version", version, "mode", mode)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received, stopping")
		cancel()
	}()

	// ===== Stores (PostgreSQL if configured, otherwise in-memory) =====
	var (
		sourceStore driven.SourceStore
		writer      driven.SourceWriter
		stateStore  driven.IndexStateStore
		vectorIndex driven.VectorIndex
		db          http.Pinger
	)
	if databaseURL != "" {
		pg, err := postgres.Connect(ctx, postgres.DefaultConfig(databaseURL))
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pg.Close()

		if err := pg.InitSchema(ctx); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}

		var encryptor *postgres.ContentEncryptor
		if contentSecret != "" {
			encryptor, err = postgres.NewContentEncryptor(contentSecret)
			if err != nil {
				log.Fatalf("Failed to create content encryptor: %v", err)
			}
			logger.Info("attachment content encryption enabled")
		}

		store := postgres.NewSourceStore(pg, encryptor)
		sourceStore = store
		writer = store
		stateStore = postgres.NewIndexStateStore(pg)
		vectorIndex = postgres.NewVectorIndex(pg)
		db = pg
		logger.Info("using postgresql stores")
	} else {
		store := memstore.NewSourceStore()
		sourceStore = store
		writer = store
		stateStore = memstore.NewIndexStateStore()
		vectorIndex = memindex.New()
		logger.Info("using in-memory stores, state is lost on restart")
	}

	// ===== Event queue (Redis if available, otherwise in-process) =====
	var eventQueue driven.EventQueue
	if redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient := redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()

		eventQueue, err = redisqueue.NewQueue(redisClient, fmt.Sprintf("indexer-%d", os.Getpid()))
		if err != nil {
			log.Fatalf("Failed to create event queue: %v", err)
		}
		logger.Info("using redis event queue")
	} else {
		eventQueue = memoryqueue.NewQueue()
		logger.Info("using in-process event queue")
	}

	// ===== Embedding backend =====
	embedder, err := ai.NewEmbeddingService(ai.Config{
		Provider:   ai.Provider(getEnv("EMBEDDING_PROVIDER", "local")),
		APIKey:     getEnv("OPENAI_API_KEY", ""),
		Model:      getEnv("EMBEDDING_MODEL", ""),
		BaseURL:    getEnv("EMBEDDING_BASE_URL", ""),
		Dimensions: getEnvInt("EMBEDDING_DIMENSIONS", 0),
	})
	if err != nil {
		log.Fatalf("Failed to create embedding service: %v", err)
	}
	if err := embedder.HealthCheck(ctx); err != nil {
		logger.Warn("embedding backend health check failed, queries will be rejected until it recovers", "error", err)
	}

	runtimeServices := runtime.NewServices()
	runtimeServices.SetEmbeddingService(embedder)
	defer runtimeServices.Close()

	logger.Info("embedding backend ready",
		"model", embedder.ModelVersion(),
		"dimensions", embedder.Dimensions())

	// ===== Core services =====
	registry := normalisers.DefaultRegistry(normalisers.DefaultChunkConfig())
	retrievalService := services.NewRetrievalService(vectorIndex, runtimeServices, logger)
	indexingService := services.NewIndexingService(sourceStore, stateStore, vectorIndex, registry, runtimeServices, logger)

	w := worker.New(worker.Config{
		Queue:          eventQueue,
		Indexing:       indexingService,
		Logger:         logger,
		Concurrency:    getEnvInt("WORKER_CONCURRENCY", 2),
		DequeueTimeout: getEnvInt("WORKER_DEQUEUE_TIMEOUT", 5),
	})

	server := http.NewServer(
		http.Config{Host: getEnv("HOST", "0.0.0.0"), Port: port, Version: version},
		authService,
		retrievalService,
		indexingService,
		sourceStore,
		writer,
		eventQueue,
		db,
		logger,
	)

	switch mode {
	case "api":
		runAPI(ctx, server, logger)

	case "worker":
		runWorker(ctx, w, logger)

	case "all":
		go runWorker(ctx, w, logger)
		runAPI(ctx, server, logger)

	default:
		log.Fatalf("Unknown mode: %s (use: api, worker, all, or mint-token)", mode)
	}
}

func runAPI(ctx context.Context, server *http.Server, logger *slog.Logger) {
	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	logger.Info("api server stopped")
}

func runWorker(ctx context.Context, w *worker.Worker, logger *slog.Logger) {
	if err := w.Start(ctx); err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}
	logger.Info("worker started, processing lifecycle events")

	<-ctx.Done()
	w.Stop()
	logger.Info("worker stopped")
}

// mintToken prints a signed access token for API clients.
// Usage: recall-core mint-token [subject] [role]
func mintToken(authService driving.AuthService) {
	subject := "owner"
	role := domain.RoleAdmin
	if len(os.Args) > 2 {
		subject = os.Args[2]
	}
	if len(os.Args) > 3 {
		role = domain.Role(os.Args[3])
	}
	ttl := time.Duration(getEnvInt("TOKEN_TTL_HOURS", 24)) * time.Hour

	token, err := authService.IssueToken(context.Background(), subject, role, ttl)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Println(token)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
