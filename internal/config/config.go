// Package config defines pipeline configuration and loading.
//
// Conventions follow the rest of the project: defaults come from New,
// Load layers an optional YAML file and environment variables on top, and
// external errors are wrapped via this package's sentinels.
package config

import (
	"fmt"
	"time"
)

// Config contains process configuration for a pipeline run.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// WalletExport is the path of the wallet-export CSV.
	WalletExport string `koanf:"wallet_export"`

	// RegistrationExports lists registration-export CSV paths, processed
	// in order. The file base name doubles as the source-group label when
	// rows carry no group column.
	RegistrationExports []string `koanf:"registration_exports"`

	// OutputDir is where participant/builder/report documents are written.
	OutputDir string `koanf:"output_dir"`

	// Delimiter is the input field delimiter.
	Delimiter string `koanf:"delimiter"`

	// FuzzyThreshold and ReviewThreshold bound the match confidence bands.
	FuzzyThreshold  float64 `koanf:"fuzzy_threshold"`
	ReviewThreshold float64 `koanf:"review_threshold"`

	// TourStart and TourEnd bound the builder-eligibility window,
	// as 2006-01-02 dates or RFC3339 timestamps. The window is closed on
	// both ends.
	TourStart string `koanf:"tour_start"`
	TourEnd   string `koanf:"tour_end"`

	// RPCEndpoint is the ledger JSON-RPC node.
	RPCEndpoint  string `koanf:"rpc_endpoint"`
	RPCTimeoutMS int    `koanf:"rpc_timeout_ms"`

	// Lookback bounds how many most-recent transactions are inspected per
	// wallet. Older in-window activity is invisible; kept configurable on
	// purpose.
	Lookback int `koanf:"lookback"`

	// PacingMS is the fixed delay between consecutive ledger queries.
	PacingMS int `koanf:"pacing_ms"`

	// AutoFix enables the whitespace/duplicate auto-fix pass before the
	// validation gate.
	AutoFix bool `koanf:"auto_fix"`

	// MetricsAddr exposes /metrics during the run when non-empty.
	MetricsAddr string `koanf:"metrics_addr"`

	// SMTP settings for the email collaborator.
	SMTPAddr string `koanf:"smtp_addr"`
	SMTPFrom string `koanf:"smtp_from"`
	SMTPUser string `koanf:"smtp_user"`
	SMTPPass string `koanf:"smtp_pass"`

	// Mint service settings.
	MintEndpoint string `koanf:"mint_endpoint"`
	MintToken    string `koanf:"mint_token"`

	// RetryAttempts caps collaborator delivery attempts.
	RetryAttempts int `koanf:"retry_attempts"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		OutputDir:       "out",
		Delimiter:       ",",
		FuzzyThreshold:  0.85,
		ReviewThreshold: 0.70,
		RPCTimeoutMS:    15_000,
		Lookback:        100,
		PacingMS:        500,
		RetryAttempts:   3,
	}
}

// dateLayouts accepted for tour window bounds.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: cannot parse date %q", ErrInvalidConfig, s)
}

// Window parses the tour window bounds. A date-only end bound extends to
// the end of that day so the interval stays closed.
func (c *Config) Window() (start, end time.Time, err error) {
	if c.TourStart == "" || c.TourEnd == "" {
		return start, end, fmt.Errorf("%w: tour_start and tour_end are required", ErrInvalidConfig)
	}
	if start, err = parseDate(c.TourStart); err != nil {
		return start, end, err
	}
	if end, err = parseDate(c.TourEnd); err != nil {
		return start, end, err
	}
	if len(c.TourEnd) == len("2006-01-02") {
		end = end.Add(24*time.Hour - time.Second)
	}
	if end.Before(start) {
		return start, end, fmt.Errorf("%w: tour_end precedes tour_start", ErrInvalidConfig)
	}
	return start, end, nil
}
