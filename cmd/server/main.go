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

	"streamvault/video-platform/internal/api"
	"streamvault/video-platform/internal/config"
	"streamvault/video-platform/internal/events"
	"streamvault/video-platform/internal/media"
	mongorepo "streamvault/video-platform/internal/repository/mongo"
	"streamvault/video-platform/internal/service"
	"streamvault/video-platform/internal/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	log.Println("Starting Video Platform Server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	log.Println("Configuration loaded.")

	// --- Database Connection ---
	dbClient, err := mongorepo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
	}
	defer func() {
		log.Println("Disconnecting MongoDB...")
		if err := mongorepo.DisconnectDB(dbClient); err != nil {
			log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Println("Database connection established.")

	// --- Ensure Indexes ---
	log.Println("Ensuring database indexes...")
	go func() { // Run index creation concurrently/in background
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongorepo.EnsureUserIndexes(ctx, appDB.Collection("users"))
		mongorepo.EnsureVideoIndexes(ctx, appDB.Collection("videos"))
		log.Println("Index creation process completed.")
	}()

	// --- Initialize Storage ---
	log.Println("Initializing file storage...")
	fileStorage, err := storage.NewLocalStorage(cfg.Storage.UploadDir)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize local storage: %v", err)
	}

	var archive storage.ObjectArchive
	if cfg.Archive.Enabled {
		archive, err = storage.NewS3Archive(cfg.Archive)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize archive storage: %v", err)
		}
	}

	// --- Initialize Repositories ---
	log.Println("Initializing repositories...")
	userRepo := mongorepo.NewMongoUserRepository(appDB)
	orgRepo := mongorepo.NewMongoOrganizationRepository(appDB)
	videoRepo := mongorepo.NewMongoVideoRepository(appDB)

	// --- Initialize Services ---
	log.Println("Initializing services...")
	broadcaster := events.NewBroadcaster()
	probe := media.NewFFProbe(os.Getenv("FFPROBE_PATH"))
	classifier := media.NewSimulatedClassifier(2 * time.Second)

	authService := service.NewAuthService(userRepo, orgRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	pipeline := service.NewProcessingPipeline(videoRepo, probe, classifier, broadcaster,
		fileStorage, archive, cfg.Pipeline.StageDelay, cfg.Pipeline.StageTimeout)
	videoService := service.NewVideoService(videoRepo, fileStorage, archive, pipeline, cfg.Storage.MaxUploadSize)
	streamer := service.NewStreamService(fileStorage)

	// --- Initialize Gin Engine ---
	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default() // Includes Logger and Recovery middleware
	router.MaxMultipartMemory = 32 << 20

	// --- Setup Routes ---
	log.Println("Setting up API routes...")
	api.SetupRoutes(router, cfg.JWT.Secret, cfg.Server.IsProduction(),
		authService, videoService, pipeline, streamer, broadcaster)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
		// No WriteTimeout: SSE subscriptions and large streams are
		// long-lived by design.
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	log.Printf("Server starting on %s", cfg.Server.Address)

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("FATAL: Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
