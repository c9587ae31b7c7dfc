package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"doc-intelligence-platform/internal/config"
	"doc-intelligence-platform/internal/logger"
	"doc-intelligence-platform/middleware"
	"doc-intelligence-platform/routes"
	"doc-intelligence-platform/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg.GinMode)

	// Wire the core services
	store, err := services.NewBlobStore(cfg)
	if err != nil {
		log.Fatal("Failed to initialize blob store:", err)
	}
	embedder := services.NewEmbedder(cfg)
	sectioner := services.NewSectionExtractor()
	controller, err := services.NewController(cfg, store, embedder, sectioner)
	if err != nil {
		log.Fatal("Failed to initialize controller:", err)
	}
	provider := services.NewInsightProvider(cfg)

	sweeper := services.NewSweeper(cfg, store)
	sweeper.Start()
	defer sweeper.Stop()

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.MaxMultipartMemory = cfg.MaxFileSize

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	// Setup routes
	routes.SetupOutlineRoutes(router, controller, services.NewOutlineExtractor())
	routes.SetupSearchRoutes(router, controller)
	routes.SetupStorageRoutes(router, controller)
	routes.SetupInsightRoutes(router, controller, provider, services.DisabledSynthesizer{})

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
