package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ecoecho-core/config"
	"ecoecho-core/handlers"
	"ecoecho-core/middleware"
	"ecoecho-core/services"
	"ecoecho-core/store"
	"ecoecho-core/utils"
	"ecoecho-core/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, redisClient, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal("failed to open store:", err)
	}
	repo := store.NewRepository(kv)
	locks := services.NewNamespaceLocks()

	httpClient := utils.NewHTTPClient(cfg.CollaboratorTimeout)

	var throttle services.RefreshThrottle = services.NewMemoryThrottle(cfg.RefreshThrottle)
	if redisClient != nil {
		throttle = services.NewRedisThrottle(redisClient, cfg.RefreshThrottle)
	}

	var backend services.StatsBackend
	var retry *services.PushRetryScheduler
	if cfg.APIBaseURL != "" {
		statsClient := services.NewStatsClient(cfg.APIBaseURL, httpClient)
		backend = statsClient
		retry = services.NewPushRetryScheduler(statsClient, cfg.PushRetryInterval)
	} else {
		log.Println("⚠️  API_BASE_URL not set, stats stay on this device")
	}

	historyService := services.NewHistoryService(repo, locks)
	achievementService := services.NewAchievementService(repo, locks, cfg.Location)
	progressionService := services.NewProgressionService(repo)
	reconciler, err := services.NewReconcilerService(repo, backend, throttle, locks, cfg.LastKnownCacheSize)
	if err != nil {
		log.Fatal("failed to create reconciler:", err)
	}
	if retry != nil {
		reconciler.Retry = retry
	}
	migration := services.NewMigrationService(repo, locks, reconciler)
	stream := services.NewAchievementStreamService(repo)

	images, err := openImageStore(ctx, cfg)
	if err != nil {
		log.Fatal("failed to initialize image storage:", err)
	}
	var classifier services.Classifier
	if cfg.ClassifierURL != "" {
		classifier = services.NewClassifierClient(cfg.ClassifierURL, httpClient)
	}
	scanService := services.NewScanService(historyService, achievementService, reconciler, images, classifier)

	app := fiber.New(fiber.Config{
		BodyLimit: 12 * 1024 * 1024,
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-User-ID, X-Device-Token",
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "store": cfg.StoreDriver})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Static(utils.UploadsURLPrefix, cfg.UploadDir)

	api := app.Group("/", middleware.DeviceTokenMiddleware(cfg.DeviceAPIToken), middleware.SessionMiddleware())
	handlers.SetupScanRoutes(api, scanService, historyService)
	handlers.SetupStatsRoutes(api, historyService, reconciler, repo)
	handlers.SetupProgressionRoutes(api, scanService, achievementService, progressionService, stream)
	handlers.SetupSessionRoutes(api, migration)

	if retry != nil {
		if err := retry.Start(); err != nil {
			log.Fatal("failed to start push retry scheduler:", err)
		}
		defer retry.Stop()
		workers.NewStatsSyncWorker(reconciler, cfg.SyncInterval).Start(ctx)
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("Server error: %v", err)
			stop()
		}
	}()

	log.Printf("✅ EcoEcho core running on http://localhost:%s (store=%s, tz=%s)", cfg.Port, cfg.StoreDriver, cfg.Location)
	log.Printf("✅ CORS configured for origins: %s", cfg.AllowedOrigins)

	<-ctx.Done()
	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, *redis.Client, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		s, err := store.OpenPostgres(cfg.DatabaseURL)
		return s, nil, err
	case config.StoreRedis:
		s, err := store.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Client(), nil
	default:
		log.Println("⚠️  STORE_DRIVER=memory, data is lost on restart")
		return store.NewMemoryStore(), nil, nil
	}
}

func openImageStore(ctx context.Context, cfg *config.Config) (services.ImageStore, error) {
	if cfg.R2.Enabled() {
		log.Printf("Scan images go to R2 bucket %s", cfg.R2.Bucket)
		return utils.NewR2ImageStore(ctx, cfg.R2)
	}
	log.Printf("Scan images go to %s", strings.TrimSuffix(cfg.UploadDir, "/"))
	return utils.NewLocalImageStore(cfg.UploadDir)
}
