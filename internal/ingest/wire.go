package ingest

import (
	"fmt"

	"matchbet/ingestion/internal/cache"
	"matchbet/ingestion/internal/client"
	"matchbet/ingestion/internal/config"
	"matchbet/ingestion/internal/rating"
	"matchbet/ingestion/internal/reconciler"
	"matchbet/ingestion/internal/repository"
	"matchbet/ingestion/internal/scrape"
)

// NewFromConfig assembles a Service backed by the Postgres record store.
// rc may be nil, in which case runs are not locked across processes.
func NewFromConfig(cfg *config.Config, db *repository.Database, rc *cache.RedisCache) (*Service, error) {
	engine, err := rating.NewEngine(cfg.Rating())
	if err != nil {
		return nil, fmt.Errorf("failed to create rating engine: %w", err)
	}

	scraper := client.NewScraper(cfg.ScrapeURL, cfg.ScrapeSelector, cfg.ScrapeTimeout, cfg.ScrapeMaxRetries)
	rec := reconciler.New(db, engine, reconciler.Options{
		DefaultStage:       cfg.Stage(),
		DefaultBestOf:      cfg.BestOf(),
		RefreshPendingOdds: cfg.RefreshPendingOdds,
	})

	opts := Options{
		Teams:   db.Teams,
		LockTTL: cfg.RunLockTTL,
		Source:  scraper.URL(),
	}
	// Avoid storing a typed nil in the interface
	if rc != nil {
		opts.Cache = rc
	}

	return NewService(scraper, scrape.NewNormalizer(cfg.TargetLocation()), rec, opts), nil
}
