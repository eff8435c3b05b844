package email

import (
	"fmt"

	"github.com/rs/zerolog"
	gomail "gopkg.in/gomail.v2"
)

// Sender delivers transactional mail.
type Sender interface {
	SendInvitation(to, orgName, inviterName, role string) error
}

type smtpSender struct {
	dialer *gomail.Dialer
	from   string
	appURL string
	logger zerolog.Logger
}

func NewSMTPSender(host string, port int, username, password, from, appURL string, logger zerolog.Logger) Sender {
	return &smtpSender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
		appURL: appURL,
		logger: logger,
	}
}

func (s *smtpSender) SendInvitation(to, orgName, inviterName, role string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("Você foi adicionado à organização %s", orgName))
	m.SetBody("text/html", fmt.Sprintf(
		`<p>%s adicionou você à organização <strong>%s</strong> como <strong>%s</strong>.</p>
<p><a href="%s">Acessar o painel</a></p>`,
		inviterName, orgName, role, s.appURL,
	))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send invitation email: %w", err)
	}
	s.logger.Info().Str("to", to).Str("organization", orgName).Msg("invitation email sent")
	return nil
}

// noopSender is used when SMTP is not configured, e.g. local
// development and tests.
type noopSender struct {
	logger zerolog.Logger
}

func NewNoopSender(logger zerolog.Logger) Sender {
	return &noopSender{logger: logger}
}

func (n *noopSender) SendInvitation(to, orgName, _, _ string) error {
	n.logger.Info().Str("to", to).Str("organization", orgName).Msg("invitation email skipped, smtp not configured")
	return nil
}
