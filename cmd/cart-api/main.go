package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/aws-rds-cart/internal/cart"
	"github.com/vasiliy-maslov/aws-rds-cart/internal/config"
	"github.com/vasiliy-maslov/aws-rds-cart/internal/db"
	cartHttp "github.com/vasiliy-maslov/aws-rds-cart/internal/handler/http"
	"github.com/vasiliy-maslov/aws-rds-cart/internal/secret"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "cart-api").Logger()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		log.Warn().Str("log_level", cfg.App.LogLevel).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Msg("Cart API starting...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if cfg.Postgres.NeedsSecret() {
		client, err := secret.NewClient(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create secrets client")
		}
		creds, err := secret.Fetch(ctx, client, cfg.Postgres.SecretARN)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read database credentials")
		}
		cfg.Postgres.ApplyCredentials(creds.Username, creds.Password)
	}

	dbConn, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	switch {
	case cfg.Postgres.Migrate:
		err = dbConn.Migrate()
	case cfg.Postgres.Synchronize:
		err = dbConn.Synchronize(ctx)
	default:
		log.Info().Msg("Schema management disabled")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare schema")
	}

	cartRepository := cart.NewRepository(dbConn.Gorm)
	handler := cartHttp.NewHandler(dbConn, cartRepository)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Server stopped")
}
