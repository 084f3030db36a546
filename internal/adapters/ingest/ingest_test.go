package ingest_test

import (
	"testing"

	"github.com/tourmint/tourmint/internal/adapters/ingest"

	. "github.com/smartystreets/goconvey/convey"
)

func TestWallets(t *testing.T) {
	Convey("Given a wallet export", t, func() {
		text := "name,wallet,programId,github\n" +
			"jane doe,Addr1111111111111111111111111111,prog-1,janedoe\n" +
			"sam,Addr2222222222222222222222222222,,\n" +
			",,,\n"

		Convey("When parsing", func() {
			wallets, err := ingest.Wallets(text)

			Convey("Then rows without an address are dropped", func() {
				So(err, ShouldBeNil)
				So(wallets, ShouldHaveLength, 2)
				So(wallets[0].Name, ShouldEqual, "jane doe")
				So(wallets[0].Address, ShouldEqual, "Addr1111111111111111111111111111")
				So(wallets[0].ProgramID, ShouldEqual, "prog-1")
				So(wallets[0].GithubHandle, ShouldEqual, "janedoe")
				So(wallets[1].GithubHandle, ShouldEqual, "")
			})
		})

		Convey("When the export is malformed", func() {
			_, err := ingest.Wallets("name,wallet\n\"unterminated\n")

			So(err, ShouldNotBeNil)
		})
	})
}

func TestRegistrations(t *testing.T) {
	Convey("Given registration batches sharing an email", t, func() {
		batchA := ingest.Batch{
			Label: "stop-berlin",
			Text: "email,name,checked_in,status\n" +
				"Jane@X.com,Jane Doe,true,approved\n" +
				"sam@x.com,Sam,false,approved\n",
		}
		batchB := ingest.Batch{
			Label: "stop-lisbon",
			Text: "email,name,checked_in,status\n" +
				"jane@x.com,J. Doe,yes,approved\n" +
				",Nobody,true,approved\n",
		}

		Convey("When parsing both batches", func() {
			merges := 0
			regs, err := ingest.Registrations([]ingest.Batch{batchA, batchB}, func() { merges++ })

			Convey("Then emails merge case-insensitively, first name wins", func() {
				So(err, ShouldBeNil)
				So(regs, ShouldHaveLength, 2)
				So(regs[0].Email, ShouldEqual, "jane@x.com")
				So(regs[0].Name, ShouldEqual, "Jane Doe")
			})

			Convey("And attended sessions accumulate with distinct groups", func() {
				So(regs[0].Sessions, ShouldEqual, 2)
				So(regs[0].Groups, ShouldResemble, []string{"stop-berlin", "stop-lisbon"})
				So(regs[0].CheckedIn, ShouldBeTrue)
			})

			Convey("And the merge callback fired once", func() {
				So(merges, ShouldEqual, 1)
			})

			Convey("And rows without email are dropped", func() {
				for _, r := range regs {
					So(r.Email, ShouldNotBeEmpty)
				}
			})

			Convey("And non-attending registrations count no sessions", func() {
				So(regs[1].Email, ShouldEqual, "sam@x.com")
				So(regs[1].Sessions, ShouldEqual, 0)
				So(regs[1].CheckedIn, ShouldBeFalse)
			})
		})
	})
}
