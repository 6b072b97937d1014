// Package notification informs customers when their lead batch fills up.
// Delivery is fire-and-forget: failures are logged and retried by the task
// queue, never surfaced to allocation.
package notification

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

const subjectBatchCompleted = "Uw leadpakket is compleet"

// BatchCompletedEmail carries everything the quota-complete email needs.
type BatchCompletedEmail struct {
	CustomerName  string
	CustomerEmail string
	Category      string
	TotalCapacity int
}

// Sender delivers customer notifications.
type Sender interface {
	SendBatchCompleted(ctx context.Context, email BatchCompletedEmail) error
}

// SMTPSender delivers via a direct SMTP connection using go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates an SMTPSender with the given credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) SendBatchCompleted(ctx context.Context, email BatchCompletedEmail) error {
	content, err := renderEmailTemplate("batch_completed.html", batchCompletedEmailData{
		Title:         subjectBatchCompleted,
		Heading:       "Leadpakket compleet",
		CustomerName:  email.CustomerName,
		Category:      email.Category,
		TotalCapacity: email.TotalCapacity,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, email.CustomerEmail, subjectBatchCompleted, content)
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

// NoopSender is used when email delivery is disabled.
type NoopSender struct{}

func (NoopSender) SendBatchCompleted(context.Context, BatchCompletedEmail) error { return nil }
