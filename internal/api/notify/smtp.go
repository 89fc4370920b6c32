package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"text/template"
)

// Invite mail is a fixed template naming the site; the client app handles the
// actual signup deep link.
var inviteMailTemplate = template.Must(template.New("invite").Parse(
	"From: {{.From}}\r\n" +
		"To: {{.To}}\r\n" +
		"Subject: Convite para a obra {{.SiteName}}\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Você foi convidado para participar da obra \"{{.SiteName}}\" no Obra Limpa.\r\n" +
		"\r\n" +
		"Baixe o aplicativo e cadastre-se com este endereço de email para ativar o acesso.\r\n",
))

// SMTPMailer sends invite mail over plain SMTP with optional auth.
type SMTPMailer struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

func (m *SMTPMailer) SendInviteMail(ctx context.Context, ev InviteCreated) error {
	if m.Host == "" || m.From == "" {
		return fmt.Errorf("notify: smtp mailer not configured")
	}

	var msg bytes.Buffer
	err := inviteMailTemplate.Execute(&msg, struct {
		From, To, SiteName string
	}{m.From, ev.Email, ev.SiteName})
	if err != nil {
		return fmt.Errorf("notify: render invite mail: %w", err)
	}

	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}

	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)
	if err := smtp.SendMail(addr, auth, m.From, []string{ev.Email}, msg.Bytes()); err != nil {
		return fmt.Errorf("notify: send invite mail: %w", err)
	}
	return nil
}
