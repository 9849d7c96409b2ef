// Command ingest runs one ingestion pass against the bracket page and
// prints how many matches were created, updated and left unchanged.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"matchbet/ingestion/internal/cache"
	"matchbet/ingestion/internal/config"
	"matchbet/ingestion/internal/ingest"
	"matchbet/ingestion/internal/repository"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.MustLoad()
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.NewDatabase(ctx, cfg.Database())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database schema")
	}

	var redisCache *cache.RedisCache
	if cfg.RedisEnabled {
		redisCache, err = cache.NewRedisCache(cfg.Redis())
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr()).Msg("Failed to connect to Redis - continuing without run lock")
			redisCache = nil
		} else {
			defer redisCache.Close()
		}
	}

	svc, err := ingest.NewFromConfig(cfg, db, redisCache)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create ingestion service")
	}

	summary, err := svc.Run(ctx)
	if errors.Is(err, ingest.ErrRunInProgress) {
		log.Warn().Msg("Another ingestion run is in progress. Exiting.")
		os.Exit(2)
	}
	if err != nil {
		log.Error().Err(err).Msg("Ingestion run failed")
		os.Exit(1)
	}

	fmt.Printf("created: %d\nupdated: %d\nunchanged: %d\n", summary.Created, summary.Updated, summary.Unchanged)
	if skipped := summary.Skipped(); skipped > 0 {
		fmt.Printf("skipped: %d (malformed %d, unknown team %d, ambiguous %d, collision %d, failed %d)\n",
			skipped, summary.Malformed, summary.UnknownTeam, summary.Ambiguous, summary.Collision, summary.Failed)
	}
}

// setupLogger configures the zerolog logger
func setupLogger(cfg *config.Config) {
	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
	}

	level := zerolog.InfoLevel
	if lvl := cfg.LogLevel; lvl != "" {
		if parsedLevel, err := zerolog.ParseLevel(lvl); err == nil {
			level = parsedLevel
		}
	}
	zerolog.SetGlobalLevel(level)
}
