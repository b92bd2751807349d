package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mintgate-api/internal/asset"
	"mintgate-api/internal/config"
	"mintgate-api/internal/events"
	"mintgate-api/internal/handler"
	"mintgate-api/internal/middleware"
	"mintgate-api/internal/payment"
	"mintgate-api/internal/repository"
	"mintgate-api/internal/router"
	"mintgate-api/internal/service"

	"github.com/redis/go-redis/v9"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting MintGate API...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	// Initialize drop store based on config
	var store repository.DropStore
	switch cfg.Store.Type {
	case "mysql":
		mysqlStore, err := repository.NewMySQLDropStore(cfg.Store.MySQLDSN())
		if err != nil {
			log.Fatalf("Failed to initialize MySQL store: %v", err)
		}
		store = mysqlStore
		log.Println("MySQL drop store initialized")
	default: // sqlite
		sqliteStore, err := repository.NewSQLiteDropStore(cfg.Store.Path)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite store: %v", err)
		}
		store = sqliteStore
		log.Println("SQLite drop store initialized")
	}
	defer store.Close()

	// Asset ownership store (the allocation collaborator)
	assets, err := asset.NewStore(cfg.Asset.Path)
	if err != nil {
		log.Fatalf("Failed to initialize asset store: %v", err)
	}
	defer assets.Close()

	// Initialize Redis client (optional: events + operator sessions)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.RedisAddress(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis connection failed: %v", err)
		redisClient = nil
	} else {
		log.Println("Redis client initialized")
	}
	cancel()

	// Rebuild the engine from the store
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 30*time.Second)
	engine, err := service.BuildEngine(loadCtx, store, func() uint64 {
		return uint64(time.Now().Unix())
	})
	cancelLoad()
	if err != nil {
		log.Fatalf("Failed to build engine: %v", err)
	}

	// Initialize services
	publisher := events.NewPublisher(redisClient, cfg.Redis.EventChannel)
	payments := payment.NewRecorder()
	saleService := service.NewSaleService(engine, store, assets, payments, publisher)
	if saleService == nil {
		log.Fatal("Failed to initialize sale service")
	}
	tokenService := service.NewTokenService(redisClient)

	// Initialize handlers
	healthHandler := handler.New(cfg.App.Version, store)
	catalogHandler := handler.NewCatalogHandler(saleService)
	windowHandler := handler.NewWindowHandler(saleService)
	mintHandler := handler.NewMintHandler(saleService)
	authHandler := handler.NewAuthHandler(tokenService, cfg.Auth.AdminKey)

	// Operator auth middleware with injected dependencies
	operatorAuth := middleware.NewOperatorAuth(middleware.AuthConfig{
		TokenService: tokenService,
		APIKeys:      cfg.Auth.Keys(),
	})

	// Create router
	r := router.New(router.Config{
		Handler:        healthHandler,
		CatalogHandler: catalogHandler,
		WindowHandler:  windowHandler,
		MintHandler:    mintHandler,
		AuthHandler:    authHandler,
		OperatorAuth:   operatorAuth,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
