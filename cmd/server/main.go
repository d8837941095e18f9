package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/AnshRaj112/ecoscan-backend/internal/config"
	"github.com/AnshRaj112/ecoscan-backend/internal/coordinator"
	"github.com/AnshRaj112/ecoscan-backend/internal/database"
	"github.com/AnshRaj112/ecoscan-backend/internal/handlers"
	"github.com/AnshRaj112/ecoscan-backend/internal/middleware"
	"github.com/AnshRaj112/ecoscan-backend/internal/productapi"
	"github.com/AnshRaj112/ecoscan-backend/internal/rewards"
	"github.com/AnshRaj112/ecoscan-backend/internal/routes"
	"github.com/AnshRaj112/ecoscan-backend/internal/scanner"
	"github.com/AnshRaj112/ecoscan-backend/internal/services"
	"github.com/AnshRaj112/ecoscan-backend/internal/store"
	"github.com/AnshRaj112/ecoscan-backend/pkg/clientip"
	"github.com/AnshRaj112/ecoscan-backend/pkg/logger"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	// Load configuration
	cfg := config.Load()

	zl, err := logger.New(logger.Config{Level: cfg.LogLevel, Dev: cfg.LogDev})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zl.Sync()
	lg := zl.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL
	pg, err := database.ConnectPostgres(ctx, cfg.PostgresURI, lg)
	if err != nil {
		lg.Fatalw("failed to connect to PostgreSQL", "error", err)
	}
	defer pg.Close()
	if err := database.InitPostgresTables(ctx, pg); err != nil {
		lg.Fatalw("failed to initialise PostgreSQL tables", "error", err)
	}

	// Connect to Redis
	rdb, err := database.ConnectRedis(ctx, cfg.RedisURI, lg)
	if err != nil {
		lg.Fatalw("failed to connect to Redis", "error", err)
	}
	defer rdb.Close()

	// Connect to MongoDB
	mongoClient, mongoDB, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, lg)
	if err != nil {
		lg.Fatalw("failed to connect to MongoDB", "error", err)
	}
	defer func() {
		if err := database.DisconnectMongo(mongoClient); err != nil {
			lg.Warnw("error disconnecting MongoDB", "error", err)
		}
	}()

	pgStore := store.NewPostgresStore(pg)
	scanLog := store.NewScanLog(mongoDB, store.NewRecentScans(rdb, lg), lg)
	if err := scanLog.EnsureIndexes(ctx); err != nil {
		lg.Warnw("failed to ensure scan history indexes", "error", err)
	}
	backend := store.NewBackend(pgStore, scanLog)

	catalog := rewards.NewCatalog(pgStore, services.NewCacheService(rdb), lg)
	if seed, err := rewards.LoadSeed(cfg.RewardsSeedFile); err != nil {
		lg.Warnw("failed to load rewards seed", "path", cfg.RewardsSeedFile, "error", err)
	} else if _, err := catalog.SeedIfEmpty(ctx, seed); err != nil {
		lg.Warnw("failed to seed rewards catalog", "error", err)
	}

	var images handlers.ImageUploader
	if cfg.CloudinaryName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		cld, err := services.NewCloudinaryService(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			lg.Warnw("failed to initialise Cloudinary, reward images disabled", "error", err)
		} else {
			images = cld
		}
	} else {
		lg.Info("Cloudinary credentials not found, reward images disabled")
	}

	hub := services.NewEventHub(rdb, lg)
	hub.Start(ctx)

	registry := coordinator.NewRegistry(cfg.CoordinatorIdleTTL)
	registry.StartJanitor(ctx, time.Minute)

	newCoordinator := func(caller, deviceID string) *coordinator.Coordinator {
		var anon coordinator.AnonymousStore
		if deviceID != "" {
			anon = store.NewAnonymousPoints(rdb, deviceID)
		}
		return coordinator.New(coordinator.Options{
			Backend:           backend,
			Anonymous:         anon,
			Notifier:          hub.Notifier(caller),
			Logger:            lg.With("caller", caller),
			BonusAmount:       cfg.DailyBonusPoints,
			Location:          cfg.Location,
			OnCommunityChange: hub.PublishCommunity,
		})
	}

	scans := scanner.New(scanner.Options{
		Lookup:          productapi.New(cfg.ProductAPIURL, cfg.ProductAPITimeout),
		Cooldown:        scanner.NewRedisCooldown(rdb),
		Logger:          lg,
		PointsPerBottle: cfg.PointsPerBottle,
		Window:          cfg.ScanCooldown,
		LookupTimeout:   cfg.ProductAPITimeout,
	})

	sessions := services.NewSessionStore(rdb)
	h := handlers.New(handlers.Deps{
		Accounts:       pgStore,
		Sessions:       sessions,
		Coordinators:   registry,
		NewCoordinator: newCoordinator,
		Scanner:        scans,
		Rewards:        catalog,
		History:        scanLog,
		SignupPrompt:   services.NewSignupPrompt(rdb),
		Images:         images,
		Events:         hub,
		Logger:         lg,
	})

	clientip.TrustProxy(cfg.TrustProxy)

	// Setup router
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(lg))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Production: SecurityHeaders → HostCheck → GlobalRateLimit → LoginRateLimit
	// Non-production: Redis-based rate limit only
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(cfg.AllowedHost) {
			r.Use(mw)
		}
		lg.Infow("production security enabled", "allowed_host", cfg.AllowedHost)
	} else {
		r.Use(middleware.RedisRateLimit(rdb, lg))
	}
	r.Use(middleware.Identify(sessions, lg))

	routes.SetupRoutes(r, h, routes.Options{IsAdmin: cfg.IsAdmin})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		lg.Infow("EcoScan backend running", "port", cfg.Port, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatalw("failed to start server", "error", err)
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Warnw("graceful shutdown failed", "error", err)
	}
}
