package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tourmint/tourmint/internal/domain/classify"
	"github.com/tourmint/tourmint/internal/domain/validate"
)

func consolidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "consolidate",
		Short: "Parse the exports, merge registrations and match wallets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}
			svc, store, err := buildService(cfg)
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

			cons, err := svc.Consolidate(cmd.Context(), walletText, batches)
			if err != nil {
				return err
			}
			participants, rep, fixes := svc.Validate(cmd.Context(), cons.Result.Participants)

			if err := store.SaveParticipants(cmd.Context(), participants); err != nil {
				return err
			}
			if err := store.SaveReview(cmd.Context(), cons.Result.Review); err != nil {
				return err
			}
			if err := store.SaveReport(cmd.Context(), rep); err != nil {
				return err
			}

			fmt.Printf("participants=%d review=%d missing=%d walkIns=%d fixes=%d\n",
				len(participants), len(cons.Result.Review),
				len(cons.Result.MissingWallet), len(cons.Result.WalkIns), len(fixes))
			printReport(rep)
			return nil
		},
	}
}

func validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Re-check the persisted participant roster",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}
			svc, store, err := buildService(cfg)
			if err != nil {
				return err
			}

			participants, err := store.LoadParticipants(cmd.Context())
			if err != nil {
				return err
			}

			fixed, rep, fixes := svc.Validate(cmd.Context(), participants)
			if err := store.SaveReport(cmd.Context(), rep); err != nil {
				return err
			}
			if len(fixes) > 0 {
				if err := store.SaveParticipants(cmd.Context(), fixed); err != nil {
					return err
				}
			}

			printReport(rep)
			if !rep.Clean() {
				return fmt.Errorf("roster is not clean: %d errors, %d duplicate clusters",
					len(rep.Errors), len(rep.Duplicates))
			}
			return nil
		},
	}
}

func classifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "classify",
		Short: "Query the ledger and split builders from participants",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}
			window, err := windowOption(cfg)
			if err != nil {
				return err
			}
			svc, store, err := buildService(cfg, ledgerOption(cfg), window)
			if err != nil {
				return err
			}

			participants, err := store.LoadParticipants(cmd.Context())
			if err != nil {
				return err
			}

			results, err := svc.Classify(cmd.Context(), participants)
			if err != nil {
				return err
			}
			builders := classify.Builders(participants, results)
			if err := store.SaveBuilders(cmd.Context(), builders); err != nil {
				return err
			}

			fmt.Printf("classified=%d builders=%d\n", len(results), len(builders))
			return nil
		},
	}
}

func distributeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "distribute",
		Short: "Mint tokens and send notifications for the persisted roster",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}
			svc, store, err := buildService(cfg, collaboratorOptions(cfg)...)
			if err != nil {
				return err
			}

			participants, err := store.LoadParticipants(cmd.Context())
			if err != nil {
				return err
			}
			builders, err := store.LoadBuilders(cmd.Context())
			if err != nil {
				return err
			}

			dist, err := svc.Distribute(cmd.Context(), participants, builders)
			if err != nil {
				return err
			}
			fmt.Printf("minted=%d emailed=%d skipped=%d mintFailures=%d emailFailures=%d\n",
				dist.Minted, dist.Emailed, dist.Skipped,
				len(dist.MintFailures), len(dist.EmailFailures))
			return nil
		},
	}
}

func printReport(rep validate.Report) {
	for _, e := range rep.Errors {
		fmt.Printf("error: %s\n", e)
	}
	for _, w := range rep.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	for _, d := range rep.Duplicates {
		fmt.Printf("duplicate: %s rows %v\n", d.Address, d.Rows)
	}
	s := rep.Summary
	fmt.Printf("total=%d valid=%d invalid=%d withEmail=%d withoutEmail=%d duplicates=%d\n",
		s.Total, s.Valid, s.Invalid, s.WithEmail, s.WithoutEmail, s.Duplicates)
}
