package notify_test

import (
	"context"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/tourmint/tourmint/internal/adapters/notify"
	"github.com/tourmint/tourmint/pkg/retry"

	. "github.com/smartystreets/goconvey/convey"
)

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
}

func TestSend(t *testing.T) {
	Convey("Given an SMTP sender with a fake transport", t, func() {
		var sentTo []string
		var sentPayload []byte
		attempts := 0

		Convey("When delivery succeeds", func() {
			s := notify.NewSMTPSender("mail.example.com:587", "noreply@example.com",
				notify.WithRetryPolicy(fastPolicy()),
				notify.WithSendFunc(func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
					sentTo = to
					sentPayload = msg
					return nil
				}),
			)

			err := s.Send(context.Background(), notify.Message{
				To:      "jane@example.com",
				Subject: "Your builder award",
				Body:    "Congratulations!",
			})

			Convey("Then the message reaches the transport with headers", func() {
				So(err, ShouldBeNil)
				So(sentTo, ShouldResemble, []string{"jane@example.com"})
				So(string(sentPayload), ShouldContainSubstring, "Subject: Your builder award")
				So(string(sentPayload), ShouldContainSubstring, "Congratulations!")
			})
		})

		Convey("When delivery fails transiently", func() {
			s := notify.NewSMTPSender("mail.example.com:587", "noreply@example.com",
				notify.WithRetryPolicy(fastPolicy()),
				notify.WithSendFunc(func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
					attempts++
					if attempts < 2 {
						return errors.New("451 temporary failure")
					}
					return nil
				}),
			)

			err := s.Send(context.Background(), notify.Message{To: "jane@example.com"})

			Convey("Then the policy retries until success", func() {
				So(err, ShouldBeNil)
				So(attempts, ShouldEqual, 2)
			})
		})

		Convey("When delivery keeps failing", func() {
			s := notify.NewSMTPSender("mail.example.com:587", "noreply@example.com",
				notify.WithRetryPolicy(fastPolicy()),
				notify.WithSendFunc(func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
					attempts++
					return errors.New("550 rejected")
				}),
			)

			err := s.Send(context.Background(), notify.Message{To: "jane@example.com"})

			Convey("Then the error wraps ErrSendFailed after capped attempts", func() {
				So(err, ShouldWrap, notify.ErrSendFailed)
				So(attempts, ShouldEqual, 3)
			})
		})

		Convey("When the recipient is empty", func() {
			s := notify.NewSMTPSender("mail.example.com:587", "noreply@example.com",
				notify.WithSendFunc(func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
					attempts++
					return nil
				}),
			)

			err := s.Send(context.Background(), notify.Message{})

			Convey("Then it fails without touching the transport", func() {
				So(err, ShouldWrap, notify.ErrSendFailed)
				So(attempts, ShouldEqual, 0)
			})
		})
	})
}
