package classify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tourmint/tourmint/internal/domain/classify"
	"github.com/tourmint/tourmint/internal/domain/model"

	. "github.com/smartystreets/goconvey/convey"
)

const (
	addrA = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAs"
	addrB = "4Nd1mYvZ8PqGxiDU66V1rXA7yyP3sQrdzAcu1veGCix"
)

// fakeLedger serves canned histories and records the addresses queried.
type fakeLedger struct {
	histories map[string][]classify.SignatureInfo
	failing   map[string]error
	queried   []string
}

func (f *fakeLedger) RecentSignatures(_ context.Context, address string, _ int) ([]classify.SignatureInfo, error) {
	f.queried = append(f.queried, address)
	if err, ok := f.failing[address]; ok {
		return nil, err
	}
	return f.histories[address], nil
}

func tourWindow() classify.Window {
	return classify.Window{
		Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC),
	}
}

func TestWindowContains(t *testing.T) {
	Convey("Given a closed tour window", t, func() {
		w := tourWindow()

		Convey("Then both bounds are inclusive", func() {
			So(w.Contains(w.Start.Unix()), ShouldBeTrue)
			So(w.Contains(w.End.Unix()), ShouldBeTrue)
			So(w.Contains(w.Start.Unix()-1), ShouldBeFalse)
			So(w.Contains(w.End.Unix()+1), ShouldBeFalse)
		})
	})
}

func TestClassify(t *testing.T) {
	Convey("Given a classifier over a fake ledger", t, func() {
		mid := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC).Unix()
		early := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC).Unix()
		before := time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC).Unix()

		ledger := &fakeLedger{
			histories: map[string][]classify.SignatureInfo{
				// Newest first.
				addrA: {
					{Signature: "sig-new", BlockTime: mid},
					{Signature: "sig-old", BlockTime: early},
					{Signature: "sig-out", BlockTime: before},
				},
				addrB: {
					{Signature: "sig-stale", BlockTime: before},
				},
			},
		}
		c := classify.New(ledger, classify.WithPacing(0))

		Convey("When a wallet has in-window activity", func() {
			results, err := c.Classify(context.Background(), []model.Participant{{Address: addrA}}, tourWindow())

			Convey("Then it is a builder with the earliest in-window tx as FirstTx", func() {
				So(err, ShouldBeNil)
				So(results, ShouldHaveLength, 1)
				r := results[0]
				So(r.IsBuilder, ShouldBeTrue)
				So(r.TxCount, ShouldEqual, 2)
				So(r.FirstTx, ShouldEqual, "sig-old")
				So(r.Err, ShouldBeEmpty)
			})
		})

		Convey("When a wallet only has out-of-window activity", func() {
			results, err := c.Classify(context.Background(), []model.Participant{{Address: addrB}}, tourWindow())

			Convey("Then it is not a builder and carries no error tag", func() {
				So(err, ShouldBeNil)
				So(results[0].IsBuilder, ShouldBeFalse)
				So(results[0].TxCount, ShouldEqual, 0)
				So(results[0].Err, ShouldBeEmpty)
			})
		})

		Convey("When a wallet's only transaction falls mid-window", func() {
			only := &fakeLedger{histories: map[string][]classify.SignatureInfo{
				addrA: {{Signature: "sig-only", BlockTime: mid}},
			}}
			oc := classify.New(only, classify.WithPacing(0))
			results, err := oc.Classify(context.Background(), []model.Participant{{Address: addrA}}, tourWindow())

			So(err, ShouldBeNil)
			So(results[0].IsBuilder, ShouldBeTrue)
			So(results[0].TxCount, ShouldEqual, 1)
			So(results[0].FirstTx, ShouldEqual, "sig-only")
		})
	})
}

func TestClassifyFailures(t *testing.T) {
	Convey("Given wallets that fail in different ways", t, func() {
		mid := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC).Unix()
		ledger := &fakeLedger{
			histories: map[string][]classify.SignatureInfo{
				addrB: {{Signature: "sig-ok", BlockTime: mid}},
			},
			failing: map[string]error{
				addrA: errors.New("rpc: connection reset"),
			},
		}
		c := classify.New(ledger, classify.WithPacing(0))

		Convey("When a ledger lookup fails", func() {
			parts := []model.Participant{{Address: addrA}, {Address: addrB}}
			results, err := c.Classify(context.Background(), parts, tourWindow())

			Convey("Then the failure is tagged and the batch continues", func() {
				So(err, ShouldBeNil)
				So(results, ShouldHaveLength, 2)
				So(results[0].IsBuilder, ShouldBeFalse)
				So(results[0].Err, ShouldEqual, classify.ErrTagLookupFailed)
				So(results[1].IsBuilder, ShouldBeTrue)
			})
		})

		Convey("When an address is malformed", func() {
			parts := []model.Participant{{Address: "not-a-wallet"}, {Address: addrB}}
			results, err := c.Classify(context.Background(), parts, tourWindow())

			Convey("Then it short-circuits without a ledger call", func() {
				So(err, ShouldBeNil)
				So(results[0].Err, ShouldEqual, classify.ErrTagInvalidAddress)
				So(results[0].TxCount, ShouldEqual, 0)
				So(ledger.queried, ShouldResemble, []string{addrB})
			})
		})
	})
}

func TestClassifyOrderingAndCancellation(t *testing.T) {
	Convey("Given several wallets", t, func() {
		ledger := &fakeLedger{histories: map[string][]classify.SignatureInfo{}}
		c := classify.New(ledger, classify.WithPacing(0))
		parts := []model.Participant{{Address: addrA}, {Address: addrB}}

		Convey("When classifying", func() {
			results, err := c.Classify(context.Background(), parts, tourWindow())

			Convey("Then output order equals input order", func() {
				So(err, ShouldBeNil)
				So(results[0].Address, ShouldEqual, addrA)
				So(results[1].Address, ShouldEqual, addrB)
			})
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			results, err := c.Classify(ctx, parts, tourWindow())

			Convey("Then no item starts and the error surfaces", func() {
				So(err, ShouldNotBeNil)
				So(results, ShouldBeEmpty)
				So(ledger.queried, ShouldBeEmpty)
			})
		})

		Convey("When cancelling mid-batch via the observer", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cc := classify.New(ledger,
				classify.WithPacing(0),
				classify.WithObserver(func(i, total int, r classify.Result) {
					cancel() // abort after the first completed item
				}),
			)
			results, err := cc.Classify(ctx, parts, tourWindow())

			Convey("Then the current item finished and the next never started", func() {
				So(err, ShouldNotBeNil)
				So(results, ShouldHaveLength, 1)
				So(ledger.queried, ShouldResemble, []string{addrA})
			})
		})
	})
}

func TestBuilders(t *testing.T) {
	Convey("Given index-aligned participants and results", t, func() {
		parts := []model.Participant{
			{Address: addrA, Name: "Jane"},
			{Address: addrB, Name: "Sam"},
		}
		results := []classify.Result{
			{Address: addrA, IsBuilder: true, TxCount: 3, FirstTx: "sig-1"},
			{Address: addrB, IsBuilder: false},
		}

		Convey("When deriving builders", func() {
			builders := classify.Builders(parts, results)

			Convey("Then only builders survive, carrying tx metadata", func() {
				So(builders, ShouldHaveLength, 1)
				So(builders[0].Name, ShouldEqual, "Jane")
				So(builders[0].TxCount, ShouldEqual, 3)
				So(builders[0].FirstTx, ShouldEqual, "sig-1")
			})
		})
	})
}
