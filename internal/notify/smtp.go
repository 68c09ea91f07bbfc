package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/freightdata/pipeline/internal/config"
	"github.com/freightdata/pipeline/internal/model"
)

// SMTPNotifier emails run summaries to the configured recipients.
type SMTPNotifier struct {
	cfg    config.NotifyConfig
	logger *slog.Logger

	// send is swappable for tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTP creates an SMTPNotifier from config.
func NewSMTP(cfg config.NotifyConfig, logger *slog.Logger) *SMTPNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPNotifier{cfg: cfg, logger: logger, send: smtp.SendMail}
}

func (n *SMTPNotifier) Notify(ctx context.Context, s model.Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", n.cfg.SMTPHost, n.cfg.SMTPPort)
	var auth smtp.Auth
	if n.cfg.Password != "" {
		auth = smtp.PlainAuth("", n.cfg.From, n.cfg.Password, n.cfg.SMTPHost)
	}

	msg := buildMessage(n.cfg.From, n.cfg.To, Subject(s), Body(s))
	if err := n.send(addr, auth, n.cfg.From, n.cfg.To, msg); err != nil {
		return fmt.Errorf("notify: send mail: %w", err)
	}

	n.logger.Info("summary emailed", "to", n.cfg.To, "status", s.Status)
	return nil
}

func buildMessage(from string, to []string, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}
