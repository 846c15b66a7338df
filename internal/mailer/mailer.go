package mailer

import (
	"fmt"
	"html"
	"net/smtp"
	"strings"

	"github.com/taxpilot/dashboard-notifications/internal/config"
	"github.com/taxpilot/dashboard-notifications/internal/model"
	"go.uber.org/zap"
)

const DIGEST_PREVIEW_LIMIT = 10

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Mailer struct {
	logger *zap.Logger
	send   sendFunc

	from string
	pass string
	host string
	port string
	to   string
}

func New(logger *zap.Logger, cfg config.MailConfig) *Mailer {
	return &Mailer{
		logger: logger,
		send:   smtp.SendMail,
		from:   cfg.From,
		pass:   cfg.Pass,
		host:   cfg.Host,
		port:   cfg.Port,
		to:     cfg.DigestTo,
	}
}

func (m *Mailer) Enabled() bool {
	return m.host != "" && m.to != ""
}

// SendUnreadDigest mails the dashboard owner a summary of what is still
// unread. Nothing is sent when the inbox is clear.
func (m *Mailer) SendUnreadDigest(agg model.Aggregate) error {
	if !m.Enabled() || agg.Total == 0 {
		return nil
	}

	subject := fmt.Sprintf("%d unread dashboard notifications", agg.Total)
	msg := []byte("Subject: " + subject + "\r\n" +
		"MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n" +
		"\r\n" + digestBody(agg))

	auth := smtp.PlainAuth("", m.from, m.pass, m.host)

	if err := m.send(m.host+":"+m.port, auth, m.from, []string{m.to}, msg); err != nil {
		return err
	}

	m.logger.Sugar().Infof("Successfully sent unread digest(%d) to(%s)", agg.Total, m.to)
	return nil
}

func digestBody(agg model.Aggregate) string {
	var b strings.Builder

	b.WriteString("<ul>")
	for _, c := range model.Categories {
		fmt.Fprintf(&b, "<li>%s: <b>%d</b></li>", c.Label(), agg.ByCategory[c])
	}
	b.WriteString("</ul>")

	shown := 0
	for _, n := range agg.Ordered {
		if !n.Unread {
			continue
		}
		if shown == DIGEST_PREVIEW_LIMIT {
			fmt.Fprintf(&b, "<p>and %d more</p>", agg.Total-shown)
			break
		}
		// Titles and descriptions come from public site forms.
		fmt.Fprintf(&b, "<p><b>%s</b><br>%s</p>", html.EscapeString(n.Title), html.EscapeString(n.Desc))
		shown++
	}

	return b.String()
}
