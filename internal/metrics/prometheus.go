package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the ingestion worker

var (
	// Scrape metrics
	ScrapeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchbet_scrape_requests_total",
			Help: "Total number of bracket page fetches",
		},
		[]string{"status"},
	)

	ScrapeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matchbet_scrape_duration_seconds",
			Help:    "Duration of bracket page fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ScrapeTokens = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "matchbet_scrape_tokens",
			Help: "Number of tokens extracted by the last fetch",
		},
	)

	// Database metrics
	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "matchbet_db_connections_active",
			Help: "Number of active database connections",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "matchbet_db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	// Ingestion run metrics
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchbet_ingest_runs_total",
			Help: "Total number of ingestion runs",
		},
		[]string{"status"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matchbet_ingest_run_duration_seconds",
			Help:    "Duration of ingestion runs in seconds",
			Buckets: []float64{.5, 1, 5, 10, 30, 60, 120},
		},
	)

	MatchesReconciled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchbet_matches_reconciled_total",
			Help: "Total number of reconciled matches by outcome",
		},
		[]string{"outcome"},
	)

	GroupsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchbet_groups_skipped_total",
			Help: "Total number of skipped match groups by reason",
		},
		[]string{"reason"},
	)

	TeamPowerRank = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "matchbet_team_power_rank",
			Help: "Current power rank per team, lower is stronger",
		},
		[]string{"team"},
	)

	RosterTeamsImported = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchbet_roster_teams_imported_total",
			Help: "Total number of roster rows upserted",
		},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "matchbet_system_uptime_seconds",
			Help: "System uptime in seconds",
		},
	)

	LastSuccessfulRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "matchbet_last_successful_run_timestamp",
			Help: "Timestamp of last successful ingestion run",
		},
	)
)

// RecordScrape records a bracket page fetch
func RecordScrape(status string, duration float64, tokens int) {
	ScrapeRequestsTotal.WithLabelValues(status).Inc()
	ScrapeDuration.Observe(duration)
	if status == "success" {
		ScrapeTokens.Set(float64(tokens))
	}
}

// RecordRun records an ingestion run
func RecordRun(status string, duration float64) {
	RunsTotal.WithLabelValues(status).Inc()
	RunDuration.Observe(duration)

	if status == "success" {
		LastSuccessfulRun.SetToCurrentTime()
	}
}

// RecordReconciled records one reconciled match
func RecordReconciled(outcome string) {
	MatchesReconciled.WithLabelValues(outcome).Inc()
}

// RecordSkip records a skipped group
func RecordSkip(reason string) {
	GroupsSkipped.WithLabelValues(reason).Inc()
}

// SetTeamPowerRank publishes a team's current PR
func SetTeamPowerRank(acronym string, pr float64) {
	TeamPowerRank.WithLabelValues(acronym).Set(pr)
}

// RecordRosterImport records upserted roster rows
func RecordRosterImport(teams int) {
	RosterTeamsImported.Add(float64(teams))
}

// UpdateDBConnectionStats updates database connection pool statistics
func UpdateDBConnectionStats(active, idle int32) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
