/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the lending engine server: configuration,
  logging, store, cache, the credit-scoring worker, and the HTTP router,
  with graceful shutdown on SIGINT/SIGTERM.

CONFIGURATION:
  Flags override environment, environment overrides defaults. A .env
  file is honored. Key variables: PORT, DB_PATH, REDIS_ADDR,
  LEDGER_CSV_PATH, LOG_LEVEL, FLOOR_ANNUAL_RATE, AFFORDABILITY_CAP,
  MIN_TOTAL_INTEREST.

EXAMPLES:
  # File database, in-memory cache
  ./server -db=./data/lending.db

  # In-memory database on another port
  ./server -db=":memory:" -port=3000
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/crestline/lending-engine/api"
	"github.com/crestline/lending-engine/cache"
	"github.com/crestline/lending-engine/config"
	"github.com/crestline/lending-engine/credit"
	"github.com/crestline/lending-engine/store/sqlite"
)

func main() {
	cfg := config.Load()

	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path (\":memory:\" for in-memory)")
	flag.Parse()

	setupLogging(cfg.LogLevel)

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer store.Close()

	var statementCache cache.Cache
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisCache(cfg.RedisAddr)
		if err := redisCache.Ping(context.Background()); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("failed to connect to redis")
		}
		defer redisCache.Close()
		statementCache = redisCache
		log.Info().Str("addr", cfg.RedisAddr).Msg("using redis statement cache")
	} else {
		statementCache = cache.NewMemoryCache()
		log.Info().Msg("using in-memory statement cache")
	}

	scorer := credit.NewWorker(store, cfg.LedgerPath)
	scorer.Start()
	defer scorer.Stop()

	handler := api.NewHandler(store, statementCache, scorer, cfg.Policy())
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", *port).Msg("lending engine listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server stopped")
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
