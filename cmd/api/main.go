package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/joshua-takyi/campus-events/internal/config"
	"github.com/joshua-takyi/campus-events/internal/connect"
	"github.com/joshua-takyi/campus-events/internal/container"
	"github.com/joshua-takyi/campus-events/internal/helpers"
	"github.com/joshua-takyi/campus-events/internal/models"
	"github.com/joshua-takyi/campus-events/internal/routes"
	"github.com/supabase-community/supabase-go"
)

func main() {
	// Load environment variables
	_ = godotenv.Load(".env.local")

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("Starting campus events API server",
		"environment", cfg.Environment,
		"event_store", cfg.EventStore,
		"image_store", cfg.ImageStore,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Auth always goes through the anon client; data writes use the server key.
	authClient, err := connect.InitSupabase(cfg.SupabaseURL, cfg.SupabaseAnonKey)
	if err != nil {
		logger.Error("Failed to connect to Supabase", "error", err)
		os.Exit(1)
	}
	dataClient, err := connect.InitSupabase(cfg.SupabaseURL, cfg.SupabaseServerKey())
	if err != nil {
		logger.Error("Failed to connect to Supabase", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to Supabase successfully")
	users := models.SupabaseNewRepo(authClient, cfg.SupabaseURL, cfg.SupabaseAnonKey)

	store, err := openStore(ctx, cfg, dataClient, logger)
	if err != nil {
		logger.Error("Failed to open event store", "error", err)
		os.Exit(1)
	}

	images, err := openImages(cfg, dataClient)
	if err != nil {
		logger.Error("Failed to open image store", "error", err)
		os.Exit(1)
	}

	verifier, err := helpers.NewTokenVerifier(ctx, cfg.SupabaseURL, cfg.SupabaseJWTSecret, logger)
	if err != nil {
		logger.Error("Failed to initialise token verification", "error", err)
		os.Exit(1)
	}
	defer verifier.Close()

	appContainer := container.NewContainer(cfg, logger, store, images, users, verifier)
	router := routes.SetupRoutes(appContainer)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("Server is shutting down...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	connect.Disconnect()
	if err := connect.MongoDBDisconnect(); err != nil {
		logger.Error("Error disconnecting from MongoDB", "error", err)
	}

	logger.Info("Server exited")
}

func openStore(ctx context.Context, cfg *config.Config, supa *supabase.Client, logger *slog.Logger) (models.Store, error) {
	switch cfg.EventStore {
	case config.StoreMongo:
		client, err := connect.MongoDBConnect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		logger.Info("Connected to MongoDB successfully", "database", cfg.MongoDBDatabase)

		repo := models.MongodbNewRepo(client, cfg.MongoDBDatabase)
		idxCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := repo.EnsureEventIndexes(idxCtx); err != nil {
			return nil, err
		}
		return repo, nil
	case config.StoreSupabase:
		return models.SupabaseNewRepo(supa, cfg.SupabaseURL, cfg.SupabaseServerKey()), nil
	case config.StoreMemory:
		logger.Warn("Using in-memory event store; data is lost on restart")
		return models.NewMemoryRepo(), nil
	}
	return nil, fmt.Errorf("unknown event store %q", cfg.EventStore)
}

func openImages(cfg *config.Config, supa *supabase.Client) (helpers.ImageStore, error) {
	switch cfg.ImageStore {
	case config.ImagesCloudinary:
		cld, err := connect.CloudinaryCredentials(cfg)
		if err != nil {
			return nil, err
		}
		return helpers.NewCloudinaryImages(cld, helpers.EventsFolder), nil
	case config.ImagesSupabase:
		return helpers.NewSupabaseImages(supa.Storage, helpers.EventImagesBucket), nil
	}
	return nil, fmt.Errorf("unknown image store %q", cfg.ImageStore)
}

func setupLogger(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.LogLevel)
	var handler slog.Handler

	if cfg.IsProduction() {
		// JSON logging for production
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		// Human-readable logging for development
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
