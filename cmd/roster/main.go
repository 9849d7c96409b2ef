// Command roster imports the initial team roster from a CSV file with the
// columns name, acronym, base_pr, seed and origin.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"matchbet/ingestion/internal/config"
	"matchbet/ingestion/internal/repository"
	"matchbet/ingestion/internal/roster"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.MustLoad()
	setupLogger(cfg)

	path := flag.String("file", cfg.RosterCSVPath, "roster CSV file")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	f, err := os.Open(*path)
	if err != nil {
		log.Fatal().Err(err).Str("file", *path).Msg("Failed to open roster file")
	}
	defer f.Close()

	entries, err := roster.Parse(f)
	if err != nil {
		log.Fatal().Err(err).Str("file", *path).Msg("Failed to parse roster file")
	}

	db, err := repository.NewDatabase(ctx, cfg.Database())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database schema")
	}

	n, err := roster.NewImporter(db, cfg.PRScale).Import(ctx, entries)
	if err != nil {
		log.Fatal().Err(err).Msg("Roster import failed")
	}

	log.Info().
		Str("file", *path).
		Int("teams", n).
		Msg("Teams imported successfully")
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
