package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/influencer-scout/backend/internal/api/handlers"
	"github.com/influencer-scout/backend/internal/auth"
	"github.com/influencer-scout/backend/internal/cache/redis"
	"github.com/influencer-scout/backend/internal/history"
	"github.com/influencer-scout/backend/internal/leads"
	"github.com/influencer-scout/backend/internal/metrics"
	"github.com/influencer-scout/backend/internal/middleware/ratelimit"
	"github.com/influencer-scout/backend/internal/middleware/security"
	"github.com/influencer-scout/backend/internal/middleware/session"
	"github.com/influencer-scout/backend/internal/notes"
	"github.com/influencer-scout/backend/internal/search"
	"github.com/influencer-scout/backend/internal/search/tiktok"
	"github.com/influencer-scout/backend/internal/storage/sqlite"
	"github.com/influencer-scout/backend/pkg/config"
	appLogger "github.com/influencer-scout/backend/pkg/logger"
	"github.com/influencer-scout/backend/pkg/retry"
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

	appLogger.Info("Starting Influencer Scout API Server")

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

	// Redis mirrors read snapshots only; the server runs fine without it.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		retryCfg := retry.DefaultConfig()
		retryCfg.Logger = appLogger.Log
		redisClient, err = retry.DoWithResult(context.Background(), retryCfg, func() (*redis.Client, error) {
			return redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		})
		if err != nil {
			appLogger.Warn("Redis unavailable, running without cache snapshots", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	sessionManager := auth.NewManager(cfg.Auth.SessionSecret, time.Duration(cfg.Auth.SessionTTLHrs)*time.Hour)

	tiktokClient := tiktok.NewClient(tiktok.Config{
		BaseURL:        cfg.TikTok.BaseURL,
		APIKey:         cfg.TikTok.APIKey,
		APIHost:        cfg.TikTok.APIHost,
		Timeout:        time.Duration(cfg.TikTok.TimeoutSec) * time.Second,
		CallsPerMinute: cfg.TikTok.CallsPerMinute,
	})
	aggregator := search.NewAggregator(tiktokClient, time.Duration(cfg.TikTok.PageDelayMs)*time.Millisecond)

	var leadsMirror leads.Mirror
	var historyCache history.Cache
	if redisClient != nil {
		leadsMirror = redisClient
		historyCache = redisClient
	}

	leadsStore := leads.NewStore(sqliteClient, leadsMirror)
	notesService := notes.NewService(sqliteClient)
	historyService := history.NewService(sqliteClient, historyCache)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: []string{"http://localhost:3000"},
		IsDevelopment:  cfg.Logging.Level == "debug",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000",
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	rateLimiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.RateLimit.MaxRequestsPerMinute,
		Logger:               appLogger.Log,
	})
	defer rateLimiter.Stop()

	authHandler := handlers.NewAuthHandler(sessionManager, cfg.Auth.AdminPassword, false)
	searchHandler := handlers.NewSearchHandler(aggregator, tiktokClient, historyService, cfg.TikTok.MaxPages)
	leadsHandler := handlers.NewLeadsHandler(leadsStore)
	notesHandler := handlers.NewNotesHandler(notesService)
	historyHandler := handlers.NewHistoryHandler(historyService)

	api := app.Group("/api/v1", rateLimiter.Middleware())

	api.Post("/auth/login", authHandler.Login)
	api.Post("/auth/logout", authHandler.Logout)

	protected := api.Group("", session.Middleware(sessionManager))

	protected.Post("/search", searchHandler.HandleSearch)
	protected.Get("/tiktok-search", searchHandler.HandleProxySearch)

	protected.Get("/search-history", historyHandler.List)
	protected.Post("/search-history", historyHandler.Add)
	protected.Delete("/search-history", historyHandler.Clear)
	protected.Get("/search-history/:id", historyHandler.Get)
	protected.Delete("/search-history/:id", historyHandler.Delete)

	protected.Get("/leads", leadsHandler.List)
	protected.Post("/leads", leadsHandler.Add)
	protected.Get("/leads/export", leadsHandler.Export)
	protected.Delete("/leads/:id", leadsHandler.Remove)
	protected.Patch("/leads/:id/state", leadsHandler.SetState)
	protected.Patch("/leads/:id/notes", leadsHandler.SetNotes)

	protected.Use("/leads/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	protected.Get("/leads/ws", websocket.New(leadsHandler.HandleEvents))

	protected.Get("/influencers/:uniqueId/meta", notesHandler.GetSummary)
	protected.Put("/influencers/:uniqueId/meta", notesHandler.PutSummary)
	protected.Get("/influencers/:uniqueId/notes", notesHandler.ListTimeline)
	protected.Post("/influencers/:uniqueId/notes", notesHandler.AddTimeline)
	protected.Delete("/influencers/:uniqueId/notes/:noteId", notesHandler.DeleteTimeline)
	protected.Get("/influencers/:uniqueId/profile", notesHandler.GetProfile)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	app.Get("/ready", func(c *fiber.Ctx) error {
		if err := sqliteClient.Ping(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unavailable",
			})
		}
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
