package notification

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

// Message est un email prêt à partir : HTML et alternative texte.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer envoie via go-mail. Sans identifiants (dev, MailHog…) on n'authentifie pas
// et le TLS devient opportuniste.
type SMTPMailer struct {
	opts SMTPOptions
}

func NewSMTPMailer(opts SMTPOptions) *SMTPMailer {
	return &SMTPMailer{opts: opts}
}

func (m *SMTPMailer) Send(ctx context.Context, in Message) error {
	msg := mail.NewMsg()
	if err := msg.From(m.opts.From); err != nil {
		return fmt.Errorf("expéditeur invalide: %w", err)
	}
	if err := msg.To(in.To); err != nil {
		return fmt.Errorf("destinataire invalide: %w", err)
	}
	msg.Subject(in.Subject)
	msg.SetBodyString(mail.TypeTextHTML, in.HTML)
	if in.Text != "" {
		msg.AddAlternativeString(mail.TypeTextPlain, in.Text)
	}

	opts := []mail.Option{mail.WithPort(m.opts.Port)}
	if m.opts.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(m.opts.Username),
			mail.WithPassword(m.opts.Password),
			mail.WithTLSPolicy(mail.TLSMandatory),
		)
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(m.opts.Host, opts...)
	if err != nil {
		return fmt.Errorf("client SMTP: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}
