package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phuslu/log"
	"github.com/redis/go-redis/v9"

	"github.com/trogers1052/portfolio-commander/internal/api"
	"github.com/trogers1052/portfolio-commander/internal/config"
	"github.com/trogers1052/portfolio-commander/internal/database"
	"github.com/trogers1052/portfolio-commander/internal/engine"
	"github.com/trogers1052/portfolio-commander/internal/kafka"
	"github.com/trogers1052/portfolio-commander/internal/polygon"
)

func main() {
	log.DefaultLogger = log.Logger{
		Level:      log.ParseLevel(envOr("LOG_LEVEL", "info")),
		TimeFormat: time.RFC3339,
		Writer:     &log.ConsoleWriter{},
	}

	cfg := config.Load()

	if cfg.Polygon.APIKey == "" {
		log.Fatal().Msg("POLYGON_API_KEY is required")
	}

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(envOr("MIGRATIONS_PATH", "db/migrations")); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	gateway := polygon.NewClient(cfg.Polygon.APIKey,
		polygon.WithBaseURL(cfg.Polygon.BaseURL),
		polygon.WithRateLimit(cfg.Polygon.RateLimit),
		polygon.WithCache(polygon.NewResponseCache(redisClient)),
	)

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.SignalsTopic)
	defer producer.Close()

	refresher := engine.NewRefresher(gateway, db, cfg.Refresh.UserID,
		engine.WithInterval(cfg.Refresh.Interval),
		engine.WithWorkers(cfg.Refresh.Workers),
		engine.WithEvents(producer),
	)

	consumer := kafka.NewPositionsConsumer(
		cfg.Kafka.Brokers, cfg.Kafka.PositionsTopic, cfg.Kafka.GroupID,
		db, gateway,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go refresher.Run(ctx)
	go func() {
		if err := consumer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("positions consumer stopped")
		}
	}()

	handler := api.NewHandler(db, refresher, gateway, cfg.Refresh.UserID)
	router := api.SetupRoutes(handler)

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("server stopped")
}

func envOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
