/*
Package main is the entry point for the SkillBridge chat service.

It is responsible for loading configuration, initializing the global logging system,
connecting to Postgres and Redis, wiring the chat hub and notification dispatcher,
setting up the HTTP server, and gracefully handling operating system interrupt
signals (SIGINT, SIGTERM) to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"sbchat/internal/app/auth"
	"sbchat/internal/app/chat"
	"sbchat/internal/app/db"
	"sbchat/internal/app/message"
	"sbchat/internal/app/notify"
	"sbchat/internal/app/presence"
	"sbchat/internal/app/room"
	"sbchat/internal/app/user"
	"sbchat/internal/configs"
	"sbchat/internal/handler"
	"sbchat/internal/pkg/logx"
)

func main() {
	// A missing .env file is fine; configuration falls back to the process environment.
	_ = godotenv.Load()

	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to connect to Postgres")
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()

	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		cancelPing()
		logx.Fatal(err, "Failed to connect to Redis")
	}
	cancelPing()

	users := user.NewStore(pool)
	rooms := room.NewStore(pool)
	messages := message.NewStore(pool)
	notifications := notify.NewStore(pool)

	registry := chat.NewRegistry()
	dispatcher := notify.NewDispatcher(notifications, registry)
	verifier := auth.NewVerifier(cfg.JWTSecret, users)
	guard := room.NewGuard(rooms)
	presenceStore := presence.NewRedisStore(rdb)
	relayer := chat.NewRelayer(messages, rooms, users, registry, dispatcher)
	hub := chat.NewHub(registry, presenceStore, verifier, guard, users, relayer)

	deps := &handler.AppDeps{
		Config:        cfg,
		Hub:           hub,
		Relayer:       relayer,
		Guard:         guard,
		Rooms:         rooms,
		Users:         users,
		Messages:      messages,
		Notifications: notifications,
		Dispatcher:    dispatcher,
	}

	router := handler.Router(deps)

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("SkillBridge Chat Service starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	dispatcher.Shutdown()

	logx.Info("Server gracefully stopped.")
}
