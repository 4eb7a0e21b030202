// Package mail sends transactional auth emails (password resets, one-time
// login codes). Delivery is best-effort; the auth flows never block a
// response on SMTP.
package mail

import (
	"context"
	"log/slog"

	"github.com/praxishq/praxis-auth/pkg/slogx"
)

// Mailer delivers a single plain-text message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogMailer writes messages to the log instead of sending them. Used in
// development and tests where no SMTP relay is available. The body is
// logged in full so reset links and codes can be copied out.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, to, subject, body string) error {
	slogx.FromContext(ctx).Info("mail delivery skipped, logging instead",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("body", body),
	)
	return nil
}
