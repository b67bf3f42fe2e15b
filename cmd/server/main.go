package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/mailpulse/mailpulse/internal/alerts"
	"github.com/mailpulse/mailpulse/internal/api"
	"github.com/mailpulse/mailpulse/internal/config"
	"github.com/mailpulse/mailpulse/internal/emails"
	"github.com/mailpulse/mailpulse/internal/ratelimit"
	"github.com/mailpulse/mailpulse/internal/slack"
	"github.com/mailpulse/mailpulse/internal/tracking"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	cfg, err := config.LoadFromEnv(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("database URL is required (config database.url or DATABASE_URL)")
	}

	// Connect to Postgres up front and fail fast on misconfiguration; every
	// handler gets the store explicitly.
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	pingCancel()
	log.Println("Connected to database")

	store := emails.NewStore(db)
	notifier := slack.NewNotifier(cfg.Slack.WebhookURL)
	if cfg.Slack.WebhookURL == "" {
		log.Println("[slack] no webhook configured, notifications will be dropped")
	}

	var limiter *ratelimit.Limiter
	if cfg.Redis.Enabled && cfg.Tracking.PublicRateLimit > 0 {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("Failed to ping redis at %s: %v", cfg.Redis.Addr, err)
		}
		limiter = ratelimit.New(redisClient, "mailpulse:public",
			cfg.Tracking.PublicRateLimit, cfg.Tracking.PublicRateWindow())
		log.Printf("[ratelimit] public issuance limited to %d req per %s per IP",
			cfg.Tracking.PublicRateLimit, cfg.Tracking.PublicRateWindow())
	}

	evaluator := alerts.NewEvaluator(store, notifier)
	pixelHandler := tracking.NewHandler(store, evaluator)
	handlers := api.NewHandlers(store, notifier, limiter, cfg.Tracking.BaseURL)
	router := api.SetupRoutes(handlers, pixelHandler, cfg.Auth.APIToken)

	addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("mailpulse listening on %s (pixel base %s)", addr, cfg.Tracking.BaseURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}
