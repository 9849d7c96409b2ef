package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"matchbet/ingestion/internal/cache"
	"matchbet/ingestion/internal/models"
	"matchbet/ingestion/internal/rating"
	"matchbet/ingestion/internal/repository"
)

// Config holds all application configuration
type Config struct {
	// Database
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"matchbet"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"matchbet_user"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" required:"true"`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`

	// Redis
	RedisEnabled  bool   `envconfig:"REDIS_ENABLED" default:"true"`
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Scrape source
	ScrapeURL        string        `envconfig:"SCRAPE_URL" default:"https://lol.fandom.com/wiki/2023_Season_World_Championship/Main_Event"`
	ScrapeSelector   string        `envconfig:"SCRAPE_SELECTOR" default:"tr.ml-row:nth-of-type(n+8) td"`
	ScrapeTimeout    time.Duration `envconfig:"SCRAPE_TIMEOUT" default:"30s"`
	ScrapeMaxRetries int           `envconfig:"SCRAPE_MAX_RETRIES" default:"3"`

	// Rating
	EloBaseline float64 `envconfig:"ELO_BASELINE" default:"1500"`
	EloKFactor  float64 `envconfig:"ELO_K_FACTOR" default:"16"`
	PRScale     float64 `envconfig:"PR_SCALE" default:"18"`

	// Reconciliation
	TargetUTCOffset    time.Duration `envconfig:"TARGET_UTC_OFFSET" default:"8h"`
	DefaultStage       string        `envconfig:"DEFAULT_STAGE" default:"swiss"`
	DefaultBestOf      int           `envconfig:"DEFAULT_BEST_OF" default:"5"`
	RefreshPendingOdds bool          `envconfig:"REFRESH_PENDING_ODDS" default:"false"`
	RunLockTTL         time.Duration `envconfig:"RUN_LOCK_TTL" default:"10m"`

	// Scheduler
	EnableScheduler   bool   `envconfig:"ENABLE_SCHEDULER" default:"true"`
	InitialRunEnabled bool   `envconfig:"INITIAL_RUN_ENABLED" default:"true"`
	IngestCron        string `envconfig:"INGEST_CRON" default:"*/15 * * * *"`

	// Roster
	RosterCSVPath string `envconfig:"ROSTER_CSV_PATH" default:"teams.csv"`

	// Monitoring
	MetricsPort int `envconfig:"METRICS_PORT" default:"9090"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if in development mode
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DatabasePassword == "" {
		return fmt.Errorf("DATABASE_PASSWORD is required")
	}

	if err := c.Rating().Validate(); err != nil {
		return err
	}

	if _, err := models.ParseStage(c.DefaultStage); err != nil {
		return fmt.Errorf("DEFAULT_STAGE: %w", err)
	}

	if _, err := models.ParseBestOf(c.DefaultBestOf); err != nil {
		return fmt.Errorf("DEFAULT_BEST_OF: %w", err)
	}

	if c.TargetUTCOffset%time.Minute != 0 || c.TargetUTCOffset < -14*time.Hour || c.TargetUTCOffset > 14*time.Hour {
		return fmt.Errorf("TARGET_UTC_OFFSET must be whole minutes within ±14h, got %s", c.TargetUTCOffset)
	}

	if c.ScrapeMaxRetries < 0 {
		return fmt.Errorf("SCRAPE_MAX_RETRIES must not be negative")
	}

	if c.RunLockTTL <= 0 {
		return fmt.Errorf("RUN_LOCK_TTL must be positive")
	}

	return nil
}

// Rating returns the rating engine constants
func (c *Config) Rating() rating.Config {
	return rating.Config{
		Baseline: c.EloBaseline,
		KFactor:  c.EloKFactor,
		Scale:    c.PRScale,
	}
}

// Stage returns the stage given to newly created matches
func (c *Config) Stage() models.Stage {
	stage, err := models.ParseStage(c.DefaultStage)
	if err != nil {
		return models.StageSwiss
	}
	return stage
}

// BestOf returns the series length given to newly created matches
func (c *Config) BestOf() models.BestOf {
	bo, err := models.ParseBestOf(c.DefaultBestOf)
	if err != nil {
		return models.BO5
	}
	return bo
}

// TargetLocation returns the fixed zone match times are expressed in
func (c *Config) TargetLocation() *time.Location {
	offset := int(c.TargetUTCOffset / time.Second)
	return time.FixedZone(fmt.Sprintf("UTC%+03d:%02d", offset/3600, abs(offset%3600)/60), offset)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Database returns the connection settings for the record store
func (c *Config) Database() repository.Config {
	return repository.Config{
		Host:     c.DatabaseHost,
		Port:     strconv.Itoa(c.DatabasePort),
		User:     c.DatabaseUser,
		Password: c.DatabasePassword,
		Database: c.DatabaseName,
		SSLMode:  c.DatabaseSSLMode,
	}
}

// Redis returns the connection settings for the run-lock cache
func (c *Config) Redis() cache.Config {
	return cache.Config{
		Host:     c.RedisHost,
		Port:     strconv.Itoa(c.RedisPort),
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// MustLoad loads configuration or panics on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
