package delivery

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"

	"insure-crm/internal/features/notification"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const mailFromName = "Insure CRM"

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender sends plain text mail through a relay.
type SMTPSender struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg, send: smtp.SendMail}
}

func (s *SMTPSender) Channel() notification.Channel { return notification.ChannelEmail }

func (s *SMTPSender) Send(ctx context.Context, n *notification.Notification) error {
	if !strings.Contains(n.Recipient, "@") {
		return Permanent(fmt.Errorf("invalid email recipient %q", n.Recipient))
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	headers := []string{
		"From: " + s.cfg.From,
		"To: " + n.Recipient,
		"Subject: " + mime.QEncoding.Encode("utf-8", n.Title),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
	}
	msg := strings.Join(headers, "\r\n") + "\r\n\r\n" + n.Message

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	if err := s.send(addr, auth, s.cfg.From, []string{n.Recipient}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// SendGridSender sends mail through the SendGrid v3 API.
type SendGridSender struct {
	client *sendgrid.Client
	from   string
}

func NewSendGridSender(apiKey, from string) *SendGridSender {
	return &SendGridSender{client: sendgrid.NewSendClient(apiKey), from: from}
}

func (s *SendGridSender) Channel() notification.Channel { return notification.ChannelEmail }

func (s *SendGridSender) Send(ctx context.Context, n *notification.Notification) error {
	if !strings.Contains(n.Recipient, "@") {
		return Permanent(fmt.Errorf("invalid email recipient %q", n.Recipient))
	}
	message := mail.NewV3Mail()
	message.SetFrom(mail.NewEmail(mailFromName, s.from))
	message.Subject = n.Title
	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail("", n.Recipient))
	message.AddPersonalizations(p)
	message.AddContent(mail.NewContent("text/plain", n.Message))

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == 429:
		return fmt.Errorf("sendgrid API error: %d %s", resp.StatusCode, resp.Body)
	case resp.StatusCode >= 400:
		return Permanent(fmt.Errorf("sendgrid rejected message: %d %s", resp.StatusCode, resp.Body))
	}
	return nil
}
