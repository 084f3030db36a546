package mint_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tourmint/tourmint/internal/adapters/mint"
	"github.com/tourmint/tourmint/pkg/retry"

	. "github.com/smartystreets/goconvey/convey"
)

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
}

func TestMint(t *testing.T) {
	Convey("Given a mint service", t, func() {
		var gotReq mint.Request
		var gotAuth string

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&gotReq)
			gotAuth = r.Header.Get("Authorization")
			_, _ = w.Write([]byte(`{"assetId":"asset-42"}`))
		}))
		defer srv.Close()

		m := mint.New(srv.URL, mint.WithRetryPolicy(fastPolicy()), mint.WithToken("secret"))

		Convey("When minting for a wallet", func() {
			id, err := m.Mint(context.Background(), mint.Request{
				Wallet: "SomeWallet",
				Name:   "Jane",
				Tier:   "builder",
			})

			Convey("Then the asset id comes back and the request is shaped correctly", func() {
				So(err, ShouldBeNil)
				So(id, ShouldEqual, "asset-42")
				So(gotReq.Wallet, ShouldEqual, "SomeWallet")
				So(gotReq.Tier, ShouldEqual, "builder")
				So(gotAuth, ShouldEqual, "Bearer secret")
			})
		})

		Convey("When the wallet is empty", func() {
			_, err := m.Mint(context.Background(), mint.Request{})

			So(err, ShouldWrap, mint.ErrMintFailed)
		})
	})

	Convey("Given a service that fails once then recovers", t, func() {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte(`{"assetId":"asset-7"}`))
		}))
		defer srv.Close()

		m := mint.New(srv.URL, mint.WithRetryPolicy(fastPolicy()))

		Convey("When minting", func() {
			id, err := m.Mint(context.Background(), mint.Request{Wallet: "W"})

			Convey("Then the retry policy recovers the call", func() {
				So(err, ShouldBeNil)
				So(id, ShouldEqual, "asset-7")
				So(calls.Load(), ShouldEqual, 2)
			})
		})
	})

	Convey("Given a service that always rejects", t, func() {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			_, _ = w.Write([]byte(`{"error":"mint authority exhausted"}`))
		}))
		defer srv.Close()

		m := mint.New(srv.URL, mint.WithRetryPolicy(fastPolicy()))

		Convey("When minting", func() {
			_, err := m.Mint(context.Background(), mint.Request{Wallet: "W"})

			Convey("Then the failure surfaces after capped attempts", func() {
				So(err, ShouldWrap, mint.ErrMintFailed)
				So(calls.Load(), ShouldEqual, 3)
			})
		})
	})
}
