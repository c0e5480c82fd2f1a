package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPConfig holds the mail relay connection settings.
type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	// From is the SMTP envelope sender.
	From string
}

// SMTPGateway implements EmailGateway over a plain SMTP relay.
type SMTPGateway struct {
	config SMTPConfig
	auth   smtp.Auth
}

// NewSMTPGateway creates the gateway. Auth is used only when both user and
// password are set.
func NewSMTPGateway(config SMTPConfig) *SMTPGateway {
	var auth smtp.Auth
	if config.User != "" && config.Password != "" {
		auth = smtp.PlainAuth("", config.User, config.Password, config.Host)
	}
	return &SMTPGateway{config: config, auth: auth}
}

// SendEmail assembles one plain-text message and hands it to the relay. The
// context deadline is not enforced mid-transaction by net/smtp; the dispatcher
// bounds the whole channel instead.
func (g *SMTPGateway) SendEmail(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := g.config.Host + ":" + g.config.Port
	msg := []string{
		"From: " + sanitizeHeader(g.config.From),
		"To: " + sanitizeHeader(to),
		"Subject: " + sanitizeHeader(subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body,
	}

	if err := smtp.SendMail(addr, g.auth, g.config.From, []string{to}, []byte(strings.Join(msg, "\r\n"))); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// sanitizeHeader strips CR/LF so recipient-controlled strings cannot inject
// extra headers.
func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", "")
}
