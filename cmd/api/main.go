package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/genbi-manufacturing/backend/internal/api"
	"github.com/genbi-manufacturing/backend/internal/api/handlers"
	"github.com/genbi-manufacturing/backend/internal/cache/redis"
	"github.com/genbi-manufacturing/backend/internal/dashboard"
	"github.com/genbi-manufacturing/backend/internal/llm"
	"github.com/genbi-manufacturing/backend/internal/metrics"
	"github.com/genbi-manufacturing/backend/internal/pipeline"
	"github.com/genbi-manufacturing/backend/internal/prompt"
	"github.com/genbi-manufacturing/backend/internal/query"
	"github.com/genbi-manufacturing/backend/internal/seed"
	"github.com/genbi-manufacturing/backend/internal/storage/mongo"
	"github.com/genbi-manufacturing/backend/internal/storage/sqlite"
	"github.com/genbi-manufacturing/backend/pkg/config"
	appLogger "github.com/genbi-manufacturing/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(appLogger.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
		Service:    "genbi-api",
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting GenBI Manufacturing API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), cfg.Mongo.ConnectTimeout()*3)
	mongoClient, err := mongo.NewClient(connectCtx, cfg.Mongo)
	cancel()
	if err != nil {
		appLogger.Fatal("Failed to create MongoDB client", zap.Error(err))
	}
	defer mongoClient.Close(context.Background())

	if cfg.Seed.OnStartup {
		seedIfEmpty(cfg, mongoClient, sqliteClient)
	}

	deps := map[string]handlers.Pinger{
		"mongo":  mongoClient,
		"sqlite": sqliteClient,
	}

	llmCfg := llm.Config{
		BaseURL:  cfg.LLM.BaseURL,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		Timeout:  cfg.LLM.Timeout(),
		CacheTTL: cfg.Query.CacheTTL(),
		Breaker:  llm.NewBreaker(),
	}

	var cache handlers.CompletionInvalidator
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis unavailable, completion cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			llmCfg.Cache = redisClient
			cache = redisClient
			deps["redis"] = redisClient
		}
	}

	llmClient := llm.NewClient(llmCfg)

	baseCatalog := prompt.DefaultCatalog()
	queryEngine := query.NewEngine(llmClient, mongoClient, query.Options{
		Catalog: baseCatalog,
		PromptOptions: []prompt.Option{
			prompt.WithTemperature(cfg.LLM.Temperature),
			prompt.WithMaxTokens(cfg.LLM.MaxTokens),
		},
		Guard: pipeline.NewGuard(cfg.Query.MaxStages, cfg.Query.AllowedOperators),
		Audit: sqliteClient,
	})

	glossaryHandler := handlers.NewGlossaryHandler(sqliteClient, queryEngine, baseCatalog, cache)
	if err := glossaryHandler.Reload(context.Background()); err != nil {
		appLogger.Warn("Failed to load stored glossary, using defaults", zap.Error(err))
	}

	app, limiter := api.NewApp(cfg, api.Handlers{
		Query:     handlers.NewQueryHandler(queryEngine, sqliteClient, cfg.Query.HistoryLimit),
		Glossary:  glossaryHandler,
		Dashboard: handlers.NewDashboardHandler(dashboard.NewSummary(mongoClient)),
		Health:    handlers.NewHealthHandler(deps),
		WebSocket: handlers.NewWebSocketHandler(queryEngine, cfg.Query.MaxQueryLength, cfg.LLM.Timeout()+cfg.Mongo.AggregateTimeout()*3),
	})
	if limiter != nil {
		defer limiter.Stop()
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		appLogger.Warn("Shutdown did not complete cleanly", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}

// seedIfEmpty loads generated data when the production collection is empty.
// Failures are logged; the server still starts.
func seedIfEmpty(cfg *config.Config, facts *mongo.Client, mappings *sqlite.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := facts.CountProduction(ctx)
	if err != nil {
		appLogger.Warn("Skipping startup seed", zap.Error(err))
		return
	}
	if n > 0 {
		appLogger.Info("Database already populated, skipping startup seed", zap.Int64("production_rows", n))
		return
	}

	ds := seed.NewGenerator(time.Now().UnixNano(), cfg.Seed.Days).Generate(time.Now())
	if err := seed.Load(ctx, ds, facts, mappings); err != nil {
		appLogger.Warn("Startup seed failed", zap.Error(err))
	}
}
