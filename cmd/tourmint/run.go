package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tourmint/tourmint/internal/app"
)

func runCommand() *cobra.Command {
	var withDistribution bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the full pipeline: consolidate, validate, classify",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}
			window, err := windowOption(cfg)
			if err != nil {
				return err
			}

			opts := []app.Option{ledgerOption(cfg), window}
			if withDistribution {
				opts = append(opts, collaboratorOptions(cfg)...)
			}
			svc, store, err := buildService(cfg, opts...)
			if err != nil {
				return err
			}

			walletText, err := readWallets(cfg)
			if err != nil {
				return err
			}
			batches, err := readBatches(cfg)
			if err != nil {
				return err
			}

			rep, err := svc.Run(cmd.Context(), walletText, batches)
			if rep != nil {
				printRunSummary(rep)
			}
			if err != nil {
				if errors.Is(err, app.ErrValidationGate) {
					fmt.Printf("validation failed, see %s\n", store.Dir())
				}
				return err
			}

			if withDistribution {
				dist, err := svc.Distribute(cmd.Context(), rep.Participants, rep.Builders)
				if err != nil {
					return err
				}
				fmt.Printf("distributed: minted=%d emailed=%d skipped=%d failures=%d\n",
					dist.Minted, dist.Emailed, dist.Skipped,
					len(dist.MintFailures)+len(dist.EmailFailures))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withDistribution, "distribute", false, "mint and notify after a successful run")
	return cmd
}

func printRunSummary(rep *app.RunReport) {
	fmt.Printf("run %s\n", rep.RunID)
	fmt.Printf("  registrations: %d (merged %d)\n", rep.Consolidation.Registrations, rep.Consolidation.Merged)
	fmt.Printf("  wallets:       %d\n", rep.Consolidation.Wallets)
	fmt.Printf("  participants:  %d\n", len(rep.Participants))
	fmt.Printf("  review queue:  %d\n", len(rep.Review))
	fmt.Printf("  missing:       %d\n", len(rep.Consolidation.Result.MissingWallet))
	fmt.Printf("  walk-ins:      %d\n", len(rep.Consolidation.Result.WalkIns))
	fmt.Printf("  validation:    %d errors, %d warnings, %d duplicate clusters\n",
		len(rep.Validation.Errors), len(rep.Validation.Warnings), len(rep.Validation.Duplicates))
	if len(rep.Results) > 0 {
		fmt.Printf("  builders:      %d\n", len(rep.Builders))
	}
}
