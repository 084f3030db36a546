package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/tourmint/tourmint/internal/adapters/ingest"
	"github.com/tourmint/tourmint/internal/adapters/ledger"
	"github.com/tourmint/tourmint/internal/adapters/mint"
	"github.com/tourmint/tourmint/internal/adapters/notify"
	"github.com/tourmint/tourmint/internal/adapters/repository"
	"github.com/tourmint/tourmint/internal/app"
	"github.com/tourmint/tourmint/internal/config"
	"github.com/tourmint/tourmint/pkg/logger"
	"github.com/tourmint/tourmint/pkg/metrics"
	"github.com/tourmint/tourmint/pkg/retry"
)

const metricsReadHeaderTimeout = 5 * time.Second

var envFile string

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tourmint",
		Short:         "Reconcile tour registrations with wallets and mint participation NFTs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before configuration")

	root.AddCommand(
		runCommand(),
		consolidateCommand(),
		validateCommand(),
		classifyCommand(),
		distributeCommand(),
	)
	return root
}

// setup initializes logging and loads configuration. Every subcommand
// goes through here so flags and env behave identically.
func setup(cmd *cobra.Command) (*config.Config, error) {
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	if err := logger.Init(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return nil, err
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(cmd.Context(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if cfg.MetricsAddr != "" {
		startMetricsServer(cmd, cfg.MetricsAddr)
	}

	return cfg, nil
}

func startMetricsServer(cmd *cobra.Command, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}
	go func() {
		logger.Get().Info(cmd.Context(), "metrics listener starting", logger.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Get().Warn(cmd.Context(), "metrics listener failed", logger.Error(err))
		}
	}()
}

func buildService(cfg *config.Config, opts ...app.Option) (*app.Service, *repository.Store, error) {
	store, err := repository.New(cfg.OutputDir)
	if err != nil {
		return nil, nil, err
	}

	base := []app.Option{
		app.WithStore(store),
		app.WithThresholds(cfg.FuzzyThreshold, cfg.ReviewThreshold),
		app.WithLookback(cfg.Lookback),
		app.WithPacing(time.Duration(cfg.PacingMS) * time.Millisecond),
		app.WithDelimiter(delimiterRune(cfg.Delimiter)),
		app.WithAutoFix(cfg.AutoFix),
		app.WithProgress(printProgress),
	}
	return app.New(append(base, opts...)...), store, nil
}

func ledgerOption(cfg *config.Config) app.Option {
	if cfg.RPCEndpoint == "" {
		return func(*app.Service) {}
	}
	client := ledger.NewClient(cfg.RPCEndpoint,
		ledger.WithTimeout(time.Duration(cfg.RPCTimeoutMS)*time.Millisecond))
	return app.WithLedger(client)
}

func collaboratorOptions(cfg *config.Config) []app.Option {
	policy := retryPolicy(cfg)
	var opts []app.Option
	if cfg.MintEndpoint != "" {
		opts = append(opts, app.WithMinter(mint.New(cfg.MintEndpoint,
			mint.WithToken(cfg.MintToken),
			mint.WithRetryPolicy(policy),
		)))
	}
	if cfg.SMTPAddr != "" {
		senderOpts := []notify.Option{notify.WithRetryPolicy(policy)}
		if cfg.SMTPUser != "" {
			senderOpts = append(senderOpts, notify.WithAuth(cfg.SMTPUser, cfg.SMTPPass))
		}
		opts = append(opts, app.WithSender(notify.NewSMTPSender(cfg.SMTPAddr, cfg.SMTPFrom, senderOpts...)))
	}
	return opts
}

func retryPolicy(cfg *config.Config) retry.Policy {
	p := retry.DefaultPolicy()
	if cfg.RetryAttempts > 0 {
		p.MaxAttempts = uint64(cfg.RetryAttempts)
	}
	return p
}

func delimiterRune(s string) rune {
	for _, r := range s {
		return r
	}
	return ','
}

func windowOption(cfg *config.Config) (app.Option, error) {
	start, end, err := cfg.Window()
	if err != nil {
		return nil, err
	}
	return app.WithWindow(start, end), nil
}

func readWallets(cfg *config.Config) (string, error) {
	b, err := os.ReadFile(cfg.WalletExport)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func readBatches(cfg *config.Config) ([]ingest.Batch, error) {
	batches := make([]ingest.Batch, 0, len(cfg.RegistrationExports))
	for _, path := range cfg.RegistrationExports {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		label := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		batches = append(batches, ingest.Batch{Label: label, Text: string(b)})
	}
	return batches, nil
}

func printProgress(stage string, index, total int, detail string) {
	fmt.Printf("%s %d/%d %s\n", stage, index+1, total, detail)
}
