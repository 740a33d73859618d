// File: /main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"yonkoma-api/config"
	"yonkoma-api/database"
	"yonkoma-api/jobs"
	"yonkoma-api/middleware"
	"yonkoma-api/routes"
	"yonkoma-api/services"
)

const AppVersion = "1.0.0"

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
}

func main() {
	// Booting screen
	fmt.Printf("%s v%s\n", color.New(color.FgHiYellow).Add(color.Bold).Sprintf("Yonkoma API"), AppVersion)
	fmt.Printf("Four-panel comic feed and likes\n")
	color.HiBlack("=====================================================\n")

	// Load configuration
	cfg := config.Load()
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	ctx := context.Background()

	// Connect to the store
	store, err := database.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("An error occurred when connecting to the store.")
	}
	defer store.Close()

	if cfg.SeedDemoData {
		if err := database.SeedData(ctx, store); err != nil {
			log.Warn().Err(err).Msg("Failed to seed store.")
		}
	}

	// Media host
	var media services.MediaHost
	if cfg.MediaEndpoint != "" {
		minioHost, err := services.NewMinioMediaHost(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("An error occurred when configuring the media host.")
		}
		if err := minioHost.EnsureBucket(ctx); err != nil {
			log.Error().Err(err).Msg("Media bucket is not ready, uploads may fail.")
		}
		media = minioHost
	} else {
		log.Warn().Msg("No media endpoint configured, keeping uploads in memory.")
		media = services.NewMemoryMediaHost(fmt.Sprintf("http://localhost:%s/media", cfg.Port))
	}

	// Services
	loader := services.NewFeedLoader(store.Posts, store.Likes)
	sessions, err := services.NewFeedSessionStore(loader, store.Likes, cfg.FeedSessionTTL,
		services.WithLikeWriteTimeout(cfg.LikeWriteTimeout),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("An error occurred when creating the feed session store.")
	}
	defer sessions.Close()

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)

	// Configure timed tasks
	cleanup := jobs.NewOrphanLikeCleanupJob(store.Posts, store.Likes, cfg.CleanupSchedule)
	if err := cleanup.Start(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when scheduling the cleanup job.")
	}
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			limiter.CleanupLimiters()
		}
	}()

	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestLogger())
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	routes.SetupRoutes(router, routes.Dependencies{
		Store:       store,
		Tokens:      services.NewTokenService(cfg.JWTSecret),
		Sessions:    sessions,
		Publish:     services.NewPublishService(store.Posts, store.Users, media),
		Saved:       services.NewSavedItemsService(store.Likes, store.Reads, services.WithFeedSessions(sessions)),
		Email:       services.NewEmailService(cfg),
		RateLimiter: limiter,
		RatePerMin:  cfg.RateLimitPerMinute,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}
	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).Msg("Starting Yonkoma API server.")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server.")
		}
	}()

	// Messages
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown did not complete.")
	}
	cleanup.Stop()
}
