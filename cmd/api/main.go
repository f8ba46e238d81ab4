package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/launchpath/resource-engine/internal/api/handlers"
	"github.com/launchpath/resource-engine/internal/cache"
	redisCache "github.com/launchpath/resource-engine/internal/cache/redis"
	"github.com/launchpath/resource-engine/internal/catalog"
	"github.com/launchpath/resource-engine/internal/matching"
	"github.com/launchpath/resource-engine/internal/metrics"
	"github.com/launchpath/resource-engine/internal/middleware/ratelimit"
	"github.com/launchpath/resource-engine/internal/middleware/security"
	"github.com/launchpath/resource-engine/internal/middleware/validation"
	"github.com/launchpath/resource-engine/internal/recommend"
	"github.com/launchpath/resource-engine/internal/storage/sqlite"
	"github.com/launchpath/resource-engine/pkg/config"
	appLogger "github.com/launchpath/resource-engine/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Resource Engine API Server")

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

	var cacheStore cache.Store = cache.NewMemoryStore()
	if cfg.Redis.Enabled {
		redisStore, err := redisCache.NewStore(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Fatal("Failed to create Redis cache store", zap.Error(err))
		}
		defer redisStore.Close()
		cacheStore = redisStore
	}

	matcher, err := matching.NewEngine(sqliteClient, cfg.Engine.CandidatePoolSize)
	if err != nil {
		appLogger.Fatal("Failed to create matching engine", zap.Error(err))
	}

	recommender, err := recommend.NewEngine(sqliteClient, sqliteClient, cacheStore, recommend.Config{
		CandidatePoolSize:  cfg.Engine.CandidatePoolSize,
		MaxSimilarUsers:    cfg.Engine.MaxSimilarUsers,
		MinUserOverlap:     cfg.Engine.MinUserOverlap,
		RecentInteractions: cfg.Engine.RecentInteractions,
		DefaultLimit:       cfg.Engine.DefaultLimit,
		MaxLimit:           cfg.Engine.MaxLimit,
		RecommendationTTL:  cfg.Cache.RecommendationTTL,
		TrendingTTL:        cfg.Cache.TrendingTTL,
		SimilarTTL:         cfg.Cache.SimilarTTL,
	})
	if err != nil {
		appLogger.Fatal("Failed to create recommendation engine", zap.Error(err))
	}

	importer := catalog.NewImporter(sqliteClient)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	limiter := ratelimit.New(ratelimit.Config{})
	defer limiter.Stop()

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-User-ID, X-User-Tier",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))
	app.Use(limiter.Middleware())
	app.Use(validation.Middleware(validation.Config{}))

	matchHandler := handlers.NewMatchHandler(matcher)
	recommendationHandler := handlers.NewRecommendationHandler(recommender)
	catalogHandler := handlers.NewCatalogHandler(importer)

	api := app.Group("/api/v1")

	api.Post("/match", matchHandler.HandleMatch)
	api.Get("/resources/phase/:phase", matchHandler.GetPhaseResources)

	api.Post("/recommendations", recommendationHandler.HandleRecommendations)
	api.Get("/resources/trending", recommendationHandler.GetTrendingResources)
	api.Get("/resources/:id/similar", recommendationHandler.GetSimilarResources)
	api.Delete("/recommendations/cache/:userID", recommendationHandler.ClearUserCache)
	api.Delete("/recommendations/cache", recommendationHandler.ClearAllCache)

	api.Post("/resources/import", catalogHandler.ImportResources)
	api.Post("/interactions", catalogHandler.RecordInteraction)
	api.Post("/bookmarks", catalogHandler.RecordBookmark)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

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
	app.Shutdown()
	appLogger.Info("Server stopped")
}
