package app

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/tourmint/tourmint/internal/adapters/ingest"
	"github.com/tourmint/tourmint/internal/adapters/mint"
	"github.com/tourmint/tourmint/internal/adapters/notify"
	"github.com/tourmint/tourmint/internal/adapters/repository"
	"github.com/tourmint/tourmint/internal/domain/classify"
	"github.com/tourmint/tourmint/internal/domain/model"
)

const (
	addrA = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAs"
	addrB = "4Nd1mYvZ8PqGxiDU66V1rXA7yyP3sQrdzAcu1veGCix"
)

type fakeLedger struct {
	sigs map[string][]classify.SignatureInfo
	err  error
}

func (f *fakeLedger) RecentSignatures(_ context.Context, address string, _ int) ([]classify.SignatureInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sigs[address], nil
}

type fakeMinter struct {
	requests []mint.Request
	err      error
}

func (f *fakeMinter) Mint(_ context.Context, req mint.Request) (string, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return "asset-" + req.Wallet[:4], nil
}

type fakeSender struct {
	messages []notify.Message
	err      error
}

func (f *fakeSender) Send(_ context.Context, msg notify.Message) error {
	f.messages = append(f.messages, msg)
	return f.err
}

const walletCSV = "name,wallet\n" +
	"Ada Lovelace," + addrA + "\n" +
	"Grace Hopper," + addrB + "\n"

const registrationCSV = "email,name,checked_in\n" +
	"ada@example.com,Ada Lovelace,true\n" +
	"grace@example.com,Grace Hopper,true\n"

func testWindow() (time.Time, time.Time) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 31, 23, 59, 59, 0, time.UTC)
	return start, end
}

func TestServiceRun(t *testing.T) {
	Convey("Given a service with every collaborator wired", t, func() {
		start, end := testWindow()
		inWindow := start.Add(24 * time.Hour).Unix()

		ledger := &fakeLedger{sigs: map[string][]classify.SignatureInfo{
			addrA: {{Signature: "sig1", BlockTime: inWindow}},
			addrB: {{Signature: "sig2", BlockTime: start.Add(-time.Hour).Unix()}},
		}}
		store, err := repository.New(t.TempDir())
		So(err, ShouldBeNil)

		svc := New(
			WithLedger(ledger),
			WithStore(store),
			WithWindow(start, end),
			WithPacing(0),
		)

		Convey("When the full pipeline runs", func() {
			rep, err := svc.Run(context.Background(), walletCSV, []ingest.Batch{
				{Label: "meetup", Text: registrationCSV},
			})

			Convey("Then it succeeds with one builder out of two participants", func() {
				So(err, ShouldBeNil)
				So(rep.RunID, ShouldNotBeEmpty)
				So(rep.Participants, ShouldHaveLength, 2)
				So(rep.Builders, ShouldHaveLength, 1)
				So(rep.Builders[0].Address, ShouldEqual, addrA)
				So(rep.Builders[0].TxCount, ShouldEqual, 1)
			})

			Convey("Then the outputs are persisted", func() {
				parts, err := store.LoadParticipants(context.Background())
				So(err, ShouldBeNil)
				So(parts, ShouldHaveLength, 2)

				builders, err := store.LoadBuilders(context.Background())
				So(err, ShouldBeNil)
				So(builders, ShouldHaveLength, 1)
			})
		})

		Convey("When a run repeats on the same inputs", func() {
			first, err := svc.Run(context.Background(), walletCSV, []ingest.Batch{
				{Label: "meetup", Text: registrationCSV},
			})
			So(err, ShouldBeNil)
			second, err := svc.Run(context.Background(), walletCSV, []ingest.Batch{
				{Label: "meetup", Text: registrationCSV},
			})
			So(err, ShouldBeNil)

			Convey("Then the outcome is identical apart from the run id", func() {
				So(second.Participants, ShouldResemble, first.Participants)
				So(second.Builders, ShouldResemble, first.Builders)
			})
		})
	})
}

func TestServiceValidationGate(t *testing.T) {
	Convey("Given wallet rows that collapse onto the same address", t, func() {
		dupWallets := "name,wallet\n" +
			"Ada Lovelace," + addrA + "\n" +
			"Ada Lovelace Again," + addrA + "\n"
		dupRegs := "email,name\n" +
			"ada@example.com,Ada Lovelace\n" +
			"ada2@example.com,Ada Lovelace Again\n"
		batches := []ingest.Batch{{Label: "meetup", Text: dupRegs}}

		ledger := &fakeLedger{sigs: map[string][]classify.SignatureInfo{}}
		start, end := testWindow()

		Convey("When auto-fix is off", func() {
			svc := New(WithLedger(ledger), WithWindow(start, end), WithPacing(0))
			rep, err := svc.Run(context.Background(), dupWallets, batches)

			Convey("Then the run halts at the gate with the full report", func() {
				So(errors.Is(err, ErrValidationGate), ShouldBeTrue)
				So(rep.Validation.Duplicates, ShouldHaveLength, 1)
				So(rep.Results, ShouldBeEmpty)
				So(rep.Builders, ShouldBeEmpty)
			})
		})

		Convey("When auto-fix is on", func() {
			svc := New(WithLedger(ledger), WithWindow(start, end), WithPacing(0), WithAutoFix(true))
			rep, err := svc.Run(context.Background(), dupWallets, batches)

			Convey("Then the duplicate is dropped and the run completes", func() {
				So(err, ShouldBeNil)
				So(rep.Fixes, ShouldNotBeEmpty)
				So(rep.Participants, ShouldHaveLength, 1)
				So(rep.Validation.Clean(), ShouldBeTrue)
			})
		})
	})
}

func TestServiceClassifyRequiresLedger(t *testing.T) {
	Convey("Given a service without a ledger", t, func() {
		svc := New()

		Convey("When classification is requested", func() {
			_, err := svc.Classify(context.Background(), []model.Participant{{Address: addrA}})

			Convey("Then it refuses up front", func() {
				So(errors.Is(err, ErrNoLedger), ShouldBeTrue)
			})
		})
	})
}

func TestServiceDistribute(t *testing.T) {
	Convey("Given participants with one builder among them", t, func() {
		participants := []model.Participant{
			{Address: addrA, Name: "Ada Lovelace", Email: "ada@example.com"},
			{Address: addrB, Name: "Grace Hopper"},
		}
		builders := []model.Builder{
			{Participant: model.Participant{Address: addrA, Name: "Ada Lovelace"}, TxCount: 3},
		}

		Convey("When both collaborators are wired", func() {
			minter := &fakeMinter{}
			sender := &fakeSender{}
			svc := New(WithMinter(minter), WithSender(sender))

			dist, err := svc.Distribute(context.Background(), participants, builders)

			Convey("Then every wallet is minted with its tier", func() {
				So(err, ShouldBeNil)
				So(dist.Minted, ShouldEqual, 2)
				So(minter.requests, ShouldHaveLength, 2)
				So(minter.requests[0].Tier, ShouldEqual, TierBuilder)
				So(minter.requests[1].Tier, ShouldEqual, TierParticipant)
			})

			Convey("Then only participants with an email are notified", func() {
				So(err, ShouldBeNil)
				So(dist.Emailed, ShouldEqual, 1)
				So(dist.Skipped, ShouldEqual, 1)
				So(sender.messages, ShouldHaveLength, 1)
				So(sender.messages[0].To, ShouldEqual, "ada@example.com")
				So(sender.messages[0].Subject, ShouldContainSubstring, "builder")
			})
		})

		Convey("When the minter keeps failing", func() {
			minter := &fakeMinter{err: errors.New("backend down")}
			svc := New(WithMinter(minter))

			dist, err := svc.Distribute(context.Background(), participants, builders)

			Convey("Then failures are recorded and the stage finishes", func() {
				So(err, ShouldBeNil)
				So(dist.Minted, ShouldEqual, 0)
				So(dist.MintFailures, ShouldResemble, []string{addrA, addrB})
			})
		})

		Convey("When no collaborator is configured", func() {
			svc := New()
			_, err := svc.Distribute(context.Background(), participants, builders)

			Convey("Then it refuses", func() {
				So(errors.Is(err, ErrNoCollaborators), ShouldBeTrue)
			})
		})

		Convey("When the context is already canceled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			svc := New(WithMinter(&fakeMinter{}))

			_, err := svc.Distribute(ctx, participants, builders)

			Convey("Then no item runs", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}
