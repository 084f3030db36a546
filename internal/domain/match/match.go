// Package match merges registrations with wallet records using
// exact-then-fuzzy name matching with confidence thresholds.
package match

import (
	"github.com/tourmint/tourmint/internal/domain/model"
	"github.com/tourmint/tourmint/internal/domain/similarity"
	"github.com/tourmint/tourmint/internal/domain/textnorm"
)

// Default confidence thresholds. Hand-tuned; overridable via options.
const (
	// DefaultFuzzyThreshold is the minimum score for an automatic fuzzy match.
	DefaultFuzzyThreshold = 0.85
	// DefaultReviewThreshold is the minimum score to propose a pairing for
	// human review instead of discarding it.
	DefaultReviewThreshold = 0.70
)

// Result holds the four output collections of a consolidation pass.
// Participants includes walk-in wallets; WalkIns additionally lists the
// raw wallet records that were never consumed by a registration.
type Result struct {
	Participants  []model.Participant
	Review        []model.ReviewCandidate
	MissingWallet []model.Registration
	WalkIns       []model.WalletRecord
}

// Option applies a configuration option to a consolidation pass.
type Option func(*settings)

type settings struct {
	fuzzyThreshold  float64
	reviewThreshold float64
}

// WithFuzzyThreshold overrides the automatic-accept score cutoff.
func WithFuzzyThreshold(t float64) Option {
	return func(s *settings) {
		if t > 0 && t <= 1 {
			s.fuzzyThreshold = t
		}
	}
}

// WithReviewThreshold overrides the review-band score cutoff.
func WithReviewThreshold(t float64) Option {
	return func(s *settings) {
		if t > 0 && t <= 1 {
			s.reviewThreshold = t
		}
	}
}

// matchContext is the per-pass mutable state: which wallets are consumed
// and the canonical-name lookup. Local to one Consolidate call, which keeps
// the pass reentrant and deterministic.
type matchContext struct {
	wallets     []model.WalletRecord
	canonical   []string       // canonical wallet names, index-aligned
	byCanonical map[string]int // canonical name -> first wallet index
	consumed    []bool
}

func newMatchContext(wallets []model.WalletRecord) *matchContext {
	mc := &matchContext{
		wallets:     wallets,
		canonical:   make([]string, len(wallets)),
		byCanonical: make(map[string]int, len(wallets)),
		consumed:    make([]bool, len(wallets)),
	}
	for i, w := range wallets {
		c := textnorm.Canonical(w.Name)
		mc.canonical[i] = c
		if _, ok := mc.byCanonical[c]; !ok && c != "" {
			// Collisions keep the first-seen wallet.
			mc.byCanonical[c] = i
		}
	}
	return mc
}

// bestUnconsumed scans all unconsumed wallets and returns the single
// highest-scoring candidate for name. Ties keep the first wallet in table
// order.
func (mc *matchContext) bestUnconsumed(name string) (idx int, score float64) {
	idx = -1
	for i := range mc.wallets {
		if mc.consumed[i] {
			continue
		}
		s := similarity.Score(name, mc.canonical[i])
		if s > score {
			score = s
			idx = i
		}
	}
	return idx, score
}

// Consolidate matches each registration to its best wallet record.
// Registrations are processed in encounter order; each wallet is consumed
// by at most one registration. Wallets never consumed become walk-in
// participants with an empty email.
func Consolidate(regs []model.Registration, wallets []model.WalletRecord, opts ...Option) Result {
	s := settings{
		fuzzyThreshold:  DefaultFuzzyThreshold,
		reviewThreshold: DefaultReviewThreshold,
	}
	for _, opt := range opts {
		opt(&s)
	}

	mc := newMatchContext(wallets)
	var res Result

	for _, reg := range regs {
		name := textnorm.Canonical(reg.Name)

		// Exact lookup first.
		if i, ok := mc.byCanonical[name]; ok && !mc.consumed[i] {
			mc.consumed[i] = true
			res.Participants = append(res.Participants, model.Participant{
				Address:    mc.wallets[i].Address,
				Name:       reg.Name,
				Email:      reg.Email,
				Group:      reg.Group(),
				Method:     model.MatchExact,
				Confidence: 1.0,
			})
			continue
		}

		i, score := mc.bestUnconsumed(name)
		switch {
		case i >= 0 && score >= s.fuzzyThreshold:
			mc.consumed[i] = true
			res.Participants = append(res.Participants, model.Participant{
				Address:    mc.wallets[i].Address,
				Name:       reg.Name,
				Email:      reg.Email,
				Group:      reg.Group(),
				Method:     model.MatchFuzzy,
				Confidence: score,
			})
		case i >= 0 && score >= s.reviewThreshold:
			// Ambiguous: defer to a human, leave the wallet available.
			res.Review = append(res.Review, model.ReviewCandidate{
				Name:          reg.Name,
				Email:         reg.Email,
				WalletName:    mc.wallets[i].Name,
				WalletAddress: mc.wallets[i].Address,
				Confidence:    score,
				Groups:        reg.Groups,
			})
		default:
			res.MissingWallet = append(res.MissingWallet, reg)
		}
	}

	// Leftover wallets register as walk-ins.
	for i, w := range mc.wallets {
		if mc.consumed[i] {
			continue
		}
		res.WalkIns = append(res.WalkIns, w)
		res.Participants = append(res.Participants, model.Participant{
			Address:    w.Address,
			Name:       w.Name,
			Group:      model.WalkInGroup,
			Method:     model.MatchExact,
			Confidence: 1.0,
		})
	}

	return res
}
