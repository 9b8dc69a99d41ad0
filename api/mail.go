package main

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/go-mail/mail/v2"

	"github.com/harlequingg/project-tracker/internal/config"
)

//go:embed templates
var templateFS embed.FS

var welcomeTemplate = template.Must(template.ParseFS(templateFS, "templates/welcome.tmpl"))

// mailSender delivers a templated message. The template must define
// "subject", "plainBody" and "htmlBody".
type mailSender interface {
	send(to string, tmpl *template.Template, data any) error
}

type smtpMailer struct {
	dialer *mail.Dialer
	from   string
}

func newMailer(cfg config.SMTPConfig) *smtpMailer {
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.Timeout = 5 * time.Second
	return &smtpMailer{dialer: d, from: cfg.Sender}
}

func render(tmpl *template.Template, data any, blocks ...string) ([]string, error) {
	out := make([]string, len(blocks))
	for i, name := range blocks {
		var buf bytes.Buffer
		if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
			return nil, fmt.Errorf("rendering %s: %w", name, err)
		}
		out[i] = buf.String()
	}
	return out, nil
}

func (m *smtpMailer) send(to string, tmpl *template.Template, data any) error {
	parts, err := render(tmpl, data, "subject", "plainBody", "htmlBody")
	if err != nil {
		return err
	}

	msg := mail.NewMessage()
	msg.SetHeader("To", to)
	msg.SetHeader("From", m.from)
	msg.SetHeader("Subject", parts[0])
	msg.SetBody("text/plain", parts[1])
	msg.AddAlternative("text/html", parts[2])

	return m.dialer.DialAndSend(msg)
}
