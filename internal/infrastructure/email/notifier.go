// Package email delivers expiry notices over SMTP. Accounts carry no email
// address, so notices go to a configured operations inbox for manual
// follow-up instead of to the subscriber directly.
package email

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	sharedConfig "nyxvpn/internal/shared/config"
)

type SMTPNotifier struct {
	config sharedConfig.EmailConfig
	dialer *gomail.Dialer
}

func NewSMTPNotifier(config sharedConfig.EmailConfig) *SMTPNotifier {
	dialer := gomail.NewDialer(config.SMTPHost, config.SMTPPort, config.SMTPUser, config.SMTPPassword)

	return &SMTPNotifier{
		config: config,
		dialer: dialer,
	}
}

func (n *SMTPNotifier) SendExpired(ctx context.Context, tgID int64) error {
	subject := fmt.Sprintf("Subscription expired: account %d", tgID)
	body := fmt.Sprintf(`Subscription for account %d has expired and was cleared.

Reach out to the subscriber if a renewal is expected.
`, tgID)
	return n.send(ctx, subject, body)
}

func (n *SMTPNotifier) SendExpiringSoon(ctx context.Context, tgID int64, endAt time.Time) error {
	subject := fmt.Sprintf("Subscription expiring soon: account %d", tgID)
	body := fmt.Sprintf(`Subscription for account %d expires on %s.

Reach out to the subscriber about renewing.
`, tgID, endAt.UTC().Format("2006-01-02 15:04 MST"))
	return n.send(ctx, subject, body)
}

func (n *SMTPNotifier) send(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.config.FromAddress)
	m.SetHeader("To", n.config.OpsAddress)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
