// Package app wires the pipeline stages together: ingest, match,
// validate, classify, persist, distribute.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tourmint/tourmint/internal/adapters/ingest"
	"github.com/tourmint/tourmint/internal/adapters/mint"
	"github.com/tourmint/tourmint/internal/adapters/notify"
	"github.com/tourmint/tourmint/internal/adapters/records"
	"github.com/tourmint/tourmint/internal/adapters/repository"
	"github.com/tourmint/tourmint/internal/domain/classify"
	"github.com/tourmint/tourmint/internal/domain/match"
	"github.com/tourmint/tourmint/internal/domain/model"
	"github.com/tourmint/tourmint/internal/domain/validate"
	"github.com/tourmint/tourmint/pkg/logger"
	"github.com/tourmint/tourmint/pkg/metrics"
)

// Progress receives a human-readable note after each classification or
// distribution item. Reporting only; results never depend on it.
type Progress func(stage string, index, total int, detail string)

// Service orchestrates the reconciliation pipeline.
type Service struct {
	logger logger.Logger

	ledger classify.Ledger
	store  *repository.Store
	sender notify.Sender
	minter mint.Minter

	fuzzyThreshold  float64
	reviewThreshold float64
	window          classify.Window
	lookback        int
	pacing          time.Duration
	delimiter       rune
	autoFix         bool
	progress        Progress
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLedger sets the ledger used for classification.
func WithLedger(l classify.Ledger) Option {
	return func(s *Service) { s.ledger = l }
}

// WithStore sets the document store for pipeline outputs.
func WithStore(st *repository.Store) Option {
	return func(s *Service) { s.store = st }
}

// WithSender sets the email collaborator.
func WithSender(n notify.Sender) Option {
	return func(s *Service) { s.sender = n }
}

// WithMinter sets the mint collaborator.
func WithMinter(m mint.Minter) Option {
	return func(s *Service) { s.minter = m }
}

// WithThresholds overrides the match confidence bands.
func WithThresholds(fuzzy, review float64) Option {
	return func(s *Service) {
		if fuzzy > 0 && fuzzy <= 1 {
			s.fuzzyThreshold = fuzzy
		}
		if review > 0 && review <= 1 {
			s.reviewThreshold = review
		}
	}
}

// WithWindow sets the builder-eligibility window.
func WithWindow(start, end time.Time) Option {
	return func(s *Service) {
		s.window = classify.Window{Start: start, End: end}
	}
}

// WithLookback bounds the per-wallet transaction lookback.
func WithLookback(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.lookback = n
		}
	}
}

// WithPacing sets the delay between consecutive ledger queries.
func WithPacing(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.pacing = d
		}
	}
}

// WithDelimiter overrides the input field delimiter.
func WithDelimiter(d rune) Option {
	return func(s *Service) {
		if d != 0 {
			s.delimiter = d
		}
	}
}

// WithAutoFix enables the whitespace/duplicate auto-fix pass before the
// validation gate.
func WithAutoFix(enabled bool) Option {
	return func(s *Service) { s.autoFix = enabled }
}

// WithProgress sets the per-item progress callback.
func WithProgress(p Progress) Option {
	return func(s *Service) { s.progress = p }
}

// New constructs a Service with defaults.
func New(opts ...Option) *Service {
	s := &Service{
		fuzzyThreshold:  match.DefaultFuzzyThreshold,
		reviewThreshold: match.DefaultReviewThreshold,
		lookback:        classify.DefaultLookback,
		pacing:          classify.DefaultPacing,
		delimiter:       ',',
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("pipeline")
	}
	return s
}

// Consolidation summarizes the matching stage alongside its collections.
type Consolidation struct {
	Registrations int
	Wallets       int
	Merged        int
	Result        match.Result
}

// Consolidate parses the exports and merges registrations with wallets.
func (s *Service) Consolidate(ctx context.Context, walletText string, batches []ingest.Batch) (Consolidation, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStageDuration("consolidate", float64(time.Since(start).Milliseconds()))
	}()

	opts := []records.Option{records.WithDelimiter(s.delimiter)}

	wallets, err := ingest.Wallets(walletText, opts...)
	if err != nil {
		return Consolidation{}, err
	}
	metrics.RecordRowsParsed("wallets", len(wallets))

	merged := 0
	regs, err := ingest.Registrations(batches, func() {
		merged++
		metrics.RecordRegistrationMerged()
	}, opts...)
	if err != nil {
		return Consolidation{}, err
	}
	metrics.RecordRowsParsed("registrations", len(regs))

	res := match.Consolidate(regs, wallets,
		match.WithFuzzyThreshold(s.fuzzyThreshold),
		match.WithReviewThreshold(s.reviewThreshold),
	)

	for _, p := range res.Participants {
		if p.Group == model.WalkInGroup {
			metrics.RecordWalkIn()
			continue
		}
		metrics.RecordMatch(string(p.Method))
	}
	for range res.Review {
		metrics.RecordReviewCandidate()
	}
	for range res.MissingWallet {
		metrics.RecordMissingWallet()
	}
	metrics.UpdateParticipantsTotal(len(res.Participants))

	s.logger.Info(ctx, "consolidation complete",
		logger.Int("registrations", len(regs)),
		logger.Int("wallets", len(wallets)),
		logger.Int("participants", len(res.Participants)),
		logger.Int("review", len(res.Review)),
		logger.Int("missingWallet", len(res.MissingWallet)),
		logger.Int("walkIns", len(res.WalkIns)),
	)

	return Consolidation{
		Registrations: len(regs),
		Wallets:       len(wallets),
		Merged:        merged,
		Result:        res,
	}, nil
}

// Validate runs the validation gate. When auto-fix is enabled and the
// first pass is dirty, the fixable issues are resolved and validation
// reruns; malformed addresses still fail the gate. The full report is
// always returned, never truncated.
func (s *Service) Validate(ctx context.Context, participants []model.Participant) ([]model.Participant, validate.Report, []string) {
	start := time.Now()
	defer func() {
		metrics.RecordStageDuration("validate", float64(time.Since(start).Milliseconds()))
	}()

	rep := validate.Check(participants)
	var fixes []string

	if !rep.Clean() && s.autoFix {
		var fixed []model.Participant
		fixed, fixes = validate.AutoFix(participants)
		s.logger.Info(ctx, "auto-fix applied", logger.Int("fixes", len(fixes)))
		participants = fixed
		rep = validate.Check(participants)
	}

	for range rep.Errors {
		metrics.RecordValidationError()
	}
	for range rep.Warnings {
		metrics.RecordValidationWarning()
	}
	for range rep.Duplicates {
		metrics.RecordDuplicateCluster()
	}

	s.logger.Info(ctx, "validation complete",
		logger.Int("errors", len(rep.Errors)),
		logger.Int("warnings", len(rep.Warnings)),
		logger.Int("duplicates", len(rep.Duplicates)),
		logger.Bool("clean", rep.Clean()),
	)

	return participants, rep, fixes
}

// timingLedger decorates a Ledger with per-query latency metrics.
type timingLedger struct {
	inner classify.Ledger
}

func (t timingLedger) RecentSignatures(ctx context.Context, address string, limit int) ([]classify.SignatureInfo, error) {
	start := time.Now()
	defer func() {
		metrics.RecordClassifyLatency(float64(time.Since(start).Milliseconds()))
	}()
	return t.inner.RecentSignatures(ctx, address, limit)
}

// Classify determines builder status for every participant in order.
func (s *Service) Classify(ctx context.Context, participants []model.Participant) ([]classify.Result, error) {
	if s.ledger == nil {
		return nil, ErrNoLedger
	}

	start := time.Now()
	defer func() {
		metrics.RecordStageDuration("classify", float64(time.Since(start).Milliseconds()))
	}()

	c := classify.New(timingLedger{inner: s.ledger},
		classify.WithLookback(s.lookback),
		classify.WithPacing(s.pacing),
		classify.WithObserver(func(i, total int, r classify.Result) {
			if r.IsBuilder {
				metrics.RecordBuilder()
			}
			if s.progress != nil {
				detail := fmt.Sprintf("%s builder=%t txs=%d", r.Address, r.IsBuilder, r.TxCount)
				if r.Err != "" {
					detail = fmt.Sprintf("%s error=%s", r.Address, r.Err)
				}
				s.progress("classify", i, total, detail)
			}
		}),
	)

	return c.Classify(ctx, participants, s.window)
}

// RunReport is the consolidated outcome of a full pipeline run.
type RunReport struct {
	RunID         string             `json:"runId"`
	Consolidation Consolidation      `json:"-"`
	Participants  []model.Participant `json:"participants"`
	Review        []model.ReviewCandidate `json:"review,omitempty"`
	Validation    validate.Report    `json:"validation"`
	Fixes         []string           `json:"fixes,omitempty"`
	Results       []classify.Result  `json:"results,omitempty"`
	Builders      []model.Builder    `json:"builders,omitempty"`
}

// Run executes parse -> match -> validate -> classify -> persist. A dirty
// validation report halts the run before classification; the report and
// review queue are persisted either way so a human can repair the source
// data.
func (s *Service) Run(ctx context.Context, walletText string, batches []ingest.Batch) (*RunReport, error) {
	rep := &RunReport{RunID: uuid.NewString()}
	s.logger.Info(ctx, "pipeline run starting", logger.String("runId", rep.RunID))

	cons, err := s.Consolidate(ctx, walletText, batches)
	if err != nil {
		return rep, err
	}
	rep.Consolidation = cons
	rep.Review = cons.Result.Review

	participants, valRep, fixes := s.Validate(ctx, cons.Result.Participants)
	rep.Participants = participants
	rep.Validation = valRep
	rep.Fixes = fixes

	if s.store != nil {
		if err := s.persistConsolidation(ctx, rep); err != nil {
			return rep, err
		}
	}

	if !valRep.Clean() {
		return rep, fmt.Errorf("%w: %d errors, %d duplicate clusters",
			ErrValidationGate, len(valRep.Errors), len(valRep.Duplicates))
	}

	results, err := s.Classify(ctx, participants)
	rep.Results = results
	if err != nil {
		return rep, err
	}

	rep.Builders = classify.Builders(participants, results)
	if s.store != nil {
		if err := s.store.SaveBuilders(ctx, rep.Builders); err != nil {
			return rep, err
		}
	}

	s.logger.Info(ctx, "pipeline run complete",
		logger.String("runId", rep.RunID),
		logger.Int("participants", len(rep.Participants)),
		logger.Int("builders", len(rep.Builders)),
	)

	return rep, nil
}

func (s *Service) persistConsolidation(ctx context.Context, rep *RunReport) error {
	if err := s.store.SaveParticipants(ctx, rep.Participants); err != nil {
		return err
	}
	if err := s.store.SaveReview(ctx, rep.Review); err != nil {
		return err
	}
	return s.store.SaveReport(ctx, rep.Validation)
}
