// Package notify delivers award notification emails. It is a thin
// collaborator around SMTP: plain-text bodies, retry policy at the
// boundary, no templating.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/tourmint/tourmint/pkg/metrics"
	"github.com/tourmint/tourmint/pkg/retry"
)

// Message is one outbound notification.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers notification messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// sendFunc matches smtp.SendMail, injectable for tests.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Option applies a configuration option to the SMTPSender.
type Option func(*SMTPSender)

// WithAuth sets SMTP plain authentication.
func WithAuth(username, password string) Option {
	return func(s *SMTPSender) {
		s.username = username
		s.password = password
	}
}

// WithRetryPolicy overrides the delivery retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(s *SMTPSender) {
		s.policy = p
	}
}

// WithSendFunc overrides the transport. Used by tests.
func WithSendFunc(fn func(addr string, a smtp.Auth, from string, to []string, msg []byte) error) Option {
	return func(s *SMTPSender) {
		if fn != nil {
			s.send = fn
		}
	}
}

// SMTPSender implements Sender over net/smtp.
type SMTPSender struct {
	addr     string // host:port
	from     string
	username string
	password string
	policy   retry.Policy
	send     sendFunc
}

// NewSMTPSender creates a sender delivering through addr as from.
func NewSMTPSender(addr, from string, opts ...Option) *SMTPSender {
	s := &SMTPSender{
		addr:   addr,
		from:   from,
		policy: retry.DefaultPolicy(),
		send:   smtp.SendMail,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send delivers msg, retrying transient failures under the policy.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("%w: empty recipient", ErrSendFailed)
	}

	var auth smtp.Auth
	if s.username != "" {
		host := s.addr
		if i := strings.IndexByte(host, ':'); i >= 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", s.username, s.password, host)
	}

	payload := []byte(
		"From: " + s.from + "\r\n" +
			"To: " + msg.To + "\r\n" +
			"Subject: " + msg.Subject + "\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/plain; charset=\"UTF-8\"\r\n" +
			"\r\n" +
			msg.Body + "\r\n",
	)

	err := retry.Do(ctx, s.policy,
		func() error { return s.send(s.addr, auth, s.from, []string{msg.To}, payload) },
		func(error) { metrics.RecordRetry("email") },
	)
	if err != nil {
		metrics.RecordEmailFailed()
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	metrics.RecordEmailSent()
	return nil
}
