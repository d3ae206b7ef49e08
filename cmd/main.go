/*
Package main is the entry point for the Lobby Chat server.

It loads configuration, initializes logging, connects to PostgreSQL and applies
migrations, wires the identity gate, the optional avatar storage and the chat hub into
the HTTP router, and shuts everything down gracefully on SIGINT or SIGTERM.
*/
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

	"lobbychat/internal/app/chat"
	"lobbychat/internal/app/db"
	"lobbychat/internal/app/storage"
	"lobbychat/internal/app/user"
	"lobbychat/internal/configs"
	"lobbychat/internal/handler"
	"lobbychat/internal/pkg/logx"
	"lobbychat/internal/pkg/pow"
)

func main() {
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Int("pow_difficulty", cfg.PowDifficulty).
		Bool("storage_enabled", cfg.StorageEnabled()).
		Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to connect to database")
	}
	defer pool.Close()

	users := db.NewUserRepo(pool)
	if n, err := users.ResetPresence(ctx); err != nil {
		logx.Error(err, "Failed to reset stale presence flags")
	} else if n > 0 {
		logx.Info("Reset stale presence flags", "users", n)
	}

	var avatars storage.StorageService
	if cfg.StorageEnabled() {
		avatars, err = storage.NewStorageService(ctx, storage.ServiceConfig{
			S3BucketName:      cfg.S3BucketName,
			S3Endpoint:        cfg.S3Endpoint,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
			S3PublicURL:       cfg.S3PublicURL,
		})
		if err != nil {
			logx.Fatal(err, "Failed to initialize storage service")
		}
	} else {
		logx.Warn("Avatar storage is not configured, uploads are disabled")
	}

	powManager := pow.NewManager(cfg.PowDifficulty)
	defer powManager.Close()

	hub := chat.NewHub(users, chat.HubConfig{
		MaxMessageBytes:  cfg.MaxMessageBytes,
		PersistQueueSize: cfg.PersistQueueSize,
	})

	router := handler.Router(&handler.AppDeps{
		Config:  cfg,
		Hub:     hub,
		Users:   users,
		Gate:    user.NewGate(users, cfg.JWTSecret),
		Pow:     powManager,
		Storage: avatars,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Lobby Chat Server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	// Hijacked websocket connections are not tracked by the HTTP server.
	hub.Shutdown()

	logx.Info("Server gracefully stopped.")
}
