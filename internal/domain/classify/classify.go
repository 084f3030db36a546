// Package classify determines builder eligibility from time-windowed
// on-chain activity per wallet.
package classify

import (
	"context"
	"time"

	"github.com/tourmint/tourmint/internal/domain/model"
	"github.com/tourmint/tourmint/internal/domain/validate"
)

// Defaults for ledger queries. The lookback bound means activity older than
// the most recent DefaultLookback transactions is invisible to the
// classifier; that is a documented limitation of the source data, kept
// configurable rather than paginated away.
const (
	DefaultLookback = 100
	DefaultPacing   = 500 * time.Millisecond
)

// SignatureInfo is one entry of a wallet's transaction history,
// newest first.
type SignatureInfo struct {
	Signature string
	BlockTime int64 // unix seconds; 0 when the ledger omitted it
}

// Ledger retrieves the recent transaction history of a wallet.
// Implementations may fail with transport errors; the classifier treats
// those as per-wallet failures, not batch failures.
type Ledger interface {
	RecentSignatures(ctx context.Context, address string, limit int) ([]SignatureInfo, error)
}

// Window is the closed [Start, End] block-time range that decides whether
// a transaction counts toward builder eligibility.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether the unix timestamp ts falls inside the window,
// both bounds inclusive.
func (w Window) Contains(ts int64) bool {
	t := time.Unix(ts, 0).UTC()
	return !t.Before(w.Start) && !t.After(w.End)
}

// Result is the per-wallet classification outcome. A non-empty Err tag
// distinguishes failed lookups from legitimately zero activity.
type Result struct {
	Address   string `json:"wallet"`
	IsBuilder bool   `json:"isBuilder"`
	TxCount   int    `json:"transactionCount"`
	FirstTx   string `json:"firstTx,omitempty"`
	Err       string `json:"error,omitempty"`
}

// Error tags carried in Result.Err.
const (
	ErrTagInvalidAddress = "invalid address"
	ErrTagLookupFailed   = "lookup failed"
)

// Observer receives each result as it completes. Reporting only; it must
// not influence classification.
type Observer func(index, total int, r Result)

// Option applies a configuration option to the Classifier.
type Option func(*Classifier)

// WithLookback bounds how many most-recent transactions are inspected.
func WithLookback(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.lookback = n
		}
	}
}

// WithPacing sets the fixed delay between consecutive ledger queries.
func WithPacing(d time.Duration) Option {
	return func(c *Classifier) {
		if d >= 0 {
			c.pacing = d
		}
	}
}

// WithObserver sets the per-item progress callback.
func WithObserver(o Observer) Option {
	return func(c *Classifier) {
		c.observer = o
	}
}

// Classifier classifies wallets strictly sequentially, pacing consecutive
// ledger queries to respect external rate limits.
type Classifier struct {
	ledger   Ledger
	lookback int
	pacing   time.Duration
	observer Observer
}

// New creates a Classifier reading from ledger.
func New(ledger Ledger, opts ...Option) *Classifier {
	c := &Classifier{
		ledger:   ledger,
		lookback: DefaultLookback,
		pacing:   DefaultPacing,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify determines builder status for every participant, in input
// order. A transport failure marks that wallet and processing continues.
// Cancellation is honored between items: the current wallet finishes,
// the next never starts, and the partial results are returned alongside
// ctx.Err().
func (c *Classifier) Classify(ctx context.Context, participants []model.Participant, w Window) ([]Result, error) {
	results := make([]Result, 0, len(participants))
	queried := false

	for i, p := range participants {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		r := c.classifyOne(ctx, p.Address, w, &queried)
		results = append(results, r)

		if c.observer != nil {
			c.observer(i, len(participants), r)
		}
	}

	return results, nil
}

// classifyOne handles a single wallet. queried tracks whether a ledger
// call already happened, so pacing only separates consecutive queries.
func (c *Classifier) classifyOne(ctx context.Context, address string, w Window, queried *bool) Result {
	r := Result{Address: address}

	if err := validate.ValidateAddress(address); err != nil {
		// Short-circuit: no ledger call for malformed addresses.
		r.Err = ErrTagInvalidAddress
		return r
	}

	if *queried && c.pacing > 0 {
		select {
		case <-time.After(c.pacing):
		case <-ctx.Done():
			// Finish this item without the courtesy delay.
		}
	}
	*queried = true

	sigs, err := c.ledger.RecentSignatures(ctx, address, c.lookback)
	if err != nil {
		r.Err = ErrTagLookupFailed
		return r
	}

	// History arrives newest first, so the last in-window entry seen is
	// the earliest in time.
	for _, s := range sigs {
		if !w.Contains(s.BlockTime) {
			continue
		}
		r.TxCount++
		r.FirstTx = s.Signature
	}
	r.IsBuilder = r.TxCount > 0

	return r
}

// Builders converts classification results back into Builder records,
// pairing them with their participants. Results must be index-aligned
// with participants, as returned by Classify.
func Builders(participants []model.Participant, results []Result) []model.Builder {
	var builders []model.Builder
	for i, r := range results {
		if i >= len(participants) || !r.IsBuilder {
			continue
		}
		builders = append(builders, model.Builder{
			Participant: participants[i],
			TxCount:     r.TxCount,
			FirstTx:     r.FirstTx,
		})
	}
	return builders
}
