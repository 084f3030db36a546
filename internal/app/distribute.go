package app

import (
	"context"
	"fmt"
	"time"

	"github.com/tourmint/tourmint/internal/adapters/mint"
	"github.com/tourmint/tourmint/internal/adapters/notify"
	"github.com/tourmint/tourmint/internal/domain/model"
	"github.com/tourmint/tourmint/pkg/logger"
	"github.com/tourmint/tourmint/pkg/metrics"
)

// Tier labels attached to mint requests.
const (
	TierBuilder     = "builder"
	TierParticipant = "participant"
)

// Distribution records the outcome of the mint-and-notify stage.
type Distribution struct {
	Minted        int      `json:"minted"`
	MintFailures  []string `json:"mintFailures,omitempty"`
	Emailed       int      `json:"emailed"`
	EmailFailures []string `json:"emailFailures,omitempty"`
	Skipped       int      `json:"skipped"`
}

// Distribute mints a token for every participant (builders get the
// builder tier) and emails each participant with a known address.
// Items run strictly in order; a failed item is recorded and the stage
// moves on. Cancellation is honored between items.
func (s *Service) Distribute(ctx context.Context, participants []model.Participant, builders []model.Builder) (Distribution, error) {
	if s.minter == nil && s.sender == nil {
		return Distribution{}, ErrNoCollaborators
	}

	start := time.Now()
	defer func() {
		metrics.RecordStageDuration("distribute", float64(time.Since(start).Milliseconds()))
	}()

	builderSet := make(map[string]struct{}, len(builders))
	for _, b := range builders {
		builderSet[b.Address] = struct{}{}
	}

	var dist Distribution
	total := len(participants)
	for i, p := range participants {
		if err := ctx.Err(); err != nil {
			return dist, err
		}

		tier := TierParticipant
		if _, ok := builderSet[p.Address]; ok {
			tier = TierBuilder
		}

		detail := s.distributeOne(ctx, p, tier, &dist)
		if s.progress != nil {
			s.progress("distribute", i, total, detail)
		}
	}

	s.logger.Info(ctx, "distribution complete",
		logger.Int("minted", dist.Minted),
		logger.Int("mintFailures", len(dist.MintFailures)),
		logger.Int("emailed", dist.Emailed),
		logger.Int("emailFailures", len(dist.EmailFailures)),
		logger.Int("skipped", dist.Skipped),
	)

	return dist, nil
}

func (s *Service) distributeOne(ctx context.Context, p model.Participant, tier string, dist *Distribution) string {
	detail := fmt.Sprintf("%s tier=%s", p.Address, tier)

	if s.minter != nil {
		assetID, err := s.minter.Mint(ctx, mint.Request{
			Wallet: p.Address,
			Name:   p.Name,
			Tier:   tier,
		})
		if err != nil {
			dist.MintFailures = append(dist.MintFailures, p.Address)
			s.logger.Warn(ctx, "mint failed",
				logger.String("wallet", p.Address),
				logger.Error(err),
			)
			detail += " mint=failed"
		} else {
			dist.Minted++
			detail += " asset=" + assetID
		}
	}

	if s.sender == nil {
		return detail
	}
	if p.Email == "" {
		dist.Skipped++
		s.logger.Debug(ctx, "no email on file, skipping notification",
			logger.String("wallet", p.Address))
		return detail + " email=skipped"
	}

	msg := notify.Message{
		To:      p.Email,
		Subject: distributionSubject(tier),
		Body:    distributionBody(p.Name, tier),
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		dist.EmailFailures = append(dist.EmailFailures, p.Email)
		s.logger.Warn(ctx, "notification failed",
			logger.String("to", p.Email),
			logger.Error(err),
		)
		return detail + " email=failed"
	}
	dist.Emailed++
	return detail + " email=sent"
}

func distributionSubject(tier string) string {
	if tier == TierBuilder {
		return "Your builder NFT is on its way"
	}
	return "Thanks for joining the tour"
}

func distributionBody(name, tier string) string {
	greeting := "Hi"
	if name != "" {
		greeting = "Hi " + name
	}
	if tier == TierBuilder {
		return greeting + ",\n\nYou shipped during the tour window, so we minted the builder edition to your wallet. Check your collectibles.\n\nThe tour crew\n"
	}
	return greeting + ",\n\nThanks for coming out. A participation token has been minted to the wallet you registered.\n\nThe tour crew\n"
}
