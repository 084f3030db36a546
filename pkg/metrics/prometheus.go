// Package metrics provides Prometheus metrics for the tourmint pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus metrics for a pipeline run.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Ingest metrics.
	rowsParsed          *prometheus.CounterVec
	registrationsMerged prometheus.Counter

	// Matching metrics.
	matches          *prometheus.CounterVec
	reviewCandidates prometheus.Counter
	missingWallets   prometheus.Counter
	walkIns          prometheus.Counter

	// Validation metrics.
	validationErrors   prometheus.Counter
	validationWarnings prometheus.Counter
	duplicateClusters  prometheus.Counter

	// Classification metrics.
	ledgerQueries   prometheus.Counter
	ledgerErrors    prometheus.Counter
	classifyLatency prometheus.Histogram
	builders        prometheus.Counter

	// Distribution metrics.
	emailsSent   prometheus.Counter
	emailsFailed prometheus.Counter
	mintsIssued  prometheus.Counter
	mintsFailed  prometheus.Counter
	retries      *prometheus.CounterVec

	// Pipeline state.
	participantsTotal prometheus.Gauge
	stageDuration     *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid the default Go collectors.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tourmint",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.rowsParsed = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "rows_parsed_total",
			Help:      "Total input rows parsed, by source kind",
		},
		[]string{"source"},
	)

	m.registrationsMerged = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "registrations_merged_total",
		Help:      "Registrations folded into an existing email entry",
	})

	m.matches = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "matches_total",
			Help:      "Registration-wallet matches by method",
		},
		[]string{"method"},
	)

	m.reviewCandidates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "review_candidates_total",
		Help:      "Matches deferred to human review",
	})

	m.missingWallets = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "missing_wallets_total",
		Help:      "Registrations with no wallet match",
	})

	m.walkIns = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "walk_ins_total",
		Help:      "Wallets with no matching registration",
	})

	m.validationErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "validation_errors_total",
		Help:      "Field-level validation errors",
	})

	m.validationWarnings = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "validation_warnings_total",
		Help:      "Field-level validation warnings",
	})

	m.duplicateClusters = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "duplicate_clusters_total",
		Help:      "Duplicate wallet-address clusters detected",
	})

	m.ledgerQueries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ledger_queries_total",
		Help:      "Signature lookups issued against the ledger",
	})

	m.ledgerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ledger_errors_total",
		Help:      "Failed ledger lookups",
	})

	m.classifyLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "classify_latency_milliseconds",
		Help:      "Per-wallet classification latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.builders = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "builders_total",
		Help:      "Participants classified as builders",
	})

	m.emailsSent = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "emails_sent_total",
		Help:      "Notification emails delivered",
	})

	m.emailsFailed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "emails_failed_total",
		Help:      "Notification emails that failed after retries",
	})

	m.mintsIssued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "mints_issued_total",
		Help:      "Mint requests accepted by the mint service",
	})

	m.mintsFailed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "mints_failed_total",
		Help:      "Mint requests that failed after retries",
	})

	m.retries = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "collaborator_retries_total",
			Help:      "Retry attempts against external collaborators",
		},
		[]string{"collaborator"},
	)

	m.participantsTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "participants_total",
		Help:      "Participants in the consolidated list",
	})

	m.stageDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "stage_duration_milliseconds",
			Help:      "Pipeline stage duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"stage"},
	)
}

// Global helpers operating on the singleton manager.

// RecordRowsParsed adds parsed row counts for a source kind.
func RecordRowsParsed(source string, n int) {
	globalManager.rowsParsed.WithLabelValues(source).Add(float64(n))
}

// RecordRegistrationMerged counts a registration folded by email dedupe.
func RecordRegistrationMerged() {
	globalManager.registrationsMerged.Inc()
}

// RecordMatch counts a match by method ("exact" or "fuzzy").
func RecordMatch(method string) {
	globalManager.matches.WithLabelValues(method).Inc()
}

// RecordReviewCandidate counts a match deferred to human review.
func RecordReviewCandidate() {
	globalManager.reviewCandidates.Inc()
}

// RecordMissingWallet counts a registration with no wallet match.
func RecordMissingWallet() {
	globalManager.missingWallets.Inc()
}

// RecordWalkIn counts a wallet with no matching registration.
func RecordWalkIn() {
	globalManager.walkIns.Inc()
}

// RecordValidationError counts a field-level validation error.
func RecordValidationError() {
	globalManager.validationErrors.Inc()
}

// RecordValidationWarning counts a field-level validation warning.
func RecordValidationWarning() {
	globalManager.validationWarnings.Inc()
}

// RecordDuplicateCluster counts a duplicate-address cluster.
func RecordDuplicateCluster() {
	globalManager.duplicateClusters.Inc()
}

// RecordLedgerQuery counts a signature lookup.
func RecordLedgerQuery() {
	globalManager.ledgerQueries.Inc()
}

// RecordLedgerError counts a failed signature lookup.
func RecordLedgerError() {
	globalManager.ledgerErrors.Inc()
}

// RecordClassifyLatency observes per-wallet classification latency.
func RecordClassifyLatency(latencyMs float64) {
	globalManager.classifyLatency.Observe(latencyMs)
}

// RecordBuilder counts a participant classified as a builder.
func RecordBuilder() {
	globalManager.builders.Inc()
}

// RecordEmailSent counts a delivered notification email.
func RecordEmailSent() {
	globalManager.emailsSent.Inc()
}

// RecordEmailFailed counts an email that failed after retries.
func RecordEmailFailed() {
	globalManager.emailsFailed.Inc()
}

// RecordMintIssued counts an accepted mint request.
func RecordMintIssued() {
	globalManager.mintsIssued.Inc()
}

// RecordMintFailed counts a mint request that failed after retries.
func RecordMintFailed() {
	globalManager.mintsFailed.Inc()
}

// RecordRetry counts a retry attempt against a collaborator.
func RecordRetry(collaborator string) {
	globalManager.retries.WithLabelValues(collaborator).Inc()
}

// UpdateParticipantsTotal sets the consolidated participant count.
func UpdateParticipantsTotal(n int) {
	globalManager.participantsTotal.Set(float64(n))
}

// RecordStageDuration observes a pipeline stage duration.
func RecordStageDuration(stage string, durationMs float64) {
	globalManager.stageDuration.WithLabelValues(stage).Observe(durationMs)
}

// GetRegistry returns the custom registry for HTTP exposition.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
