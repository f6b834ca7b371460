package mail

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"

	"github.com/janis-gruettmueller/lightweight-erp-system/internal/infra/config"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/infra/logger"
)

// credentialsTemplate is the onboarding mail body. The temporary password
// expires after five days, matching the expiry date stamped on the account.
const credentialsTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Dein neuer LeanX Account</title>
</head>
<body>
    <p style="color:red;"><b>ACHTUNG!</b> Dies ist eine automatisch generierte E-Mail. Bitte antworten Sie nicht hierauf!</p>
    <br>
    <p>Willkommen im Team!</p>
    <p>Hier sind Ihre Zugangsdaten f&uuml;r <b>LeanX</b>, unser lightweight ERP-System:</p>
    <ul>
        <li>Login: <a href="%s">%s</a></li>
    </ul>
    <p>Ihre Zugangsdaten:</p>
    <ul>
        <li><b>Benutzername:</b> %s</li>
        <li><b>Passwort:</b> %s</li>
    </ul>
    <p><b>WICHTIG:</b> Das Passwort l&auml;uft in <b>5 Tagen</b> ab! Bitte &auml;ndern Sie es rechtzeitig.</p>
    <p>Bei Fragen oder Problemen wenden Sie sich bitte direkt an den IT-Support: it.support@lean-x.de</p>
    <br>
    <p>Beste Gr&uuml;&szlig;e<br>Dein IT-Service-Team</p>
</body>
</html>`

// SMTPMailer implements port.CredentialsMailer over an authenticated
// STARTTLS SMTP connection.
type SMTPMailer struct {
	cfg    config.SMTPSettings
	logger *zap.Logger
	send   func(m *gomail.Message) error
}

// NewSMTPMailer constructs the mailer from SMTP settings.
func NewSMTPMailer(cfg config.SMTPSettings, log *zap.Logger) *SMTPMailer {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &SMTPMailer{
		cfg:    cfg,
		logger: log,
		send: func(m *gomail.Message) error {
			return dialer.DialAndSend(m)
		},
	}
}

// SendCredentials delivers the initial username and temporary password to a
// new hire. A single attempt; retry policy belongs to the onboarding job.
func (m *SMTPMailer) SendCredentials(ctx context.Context, to, username, password string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from := m.cfg.From
	if from == "" {
		from = m.cfg.Username
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "NO-REPLY: Dein neuer LeanX Account")
	msg.SetBody("text/html", fmt.Sprintf(credentialsTemplate, m.cfg.LoginURL, m.cfg.LoginURL, username, password))

	if err := m.send(msg); err != nil {
		return fmt.Errorf("send credentials mail: %w", err)
	}

	m.logger.Info("credentials mail sent",
		zap.String("to", logger.MaskEmail(to)),
		zap.String("username", username),
	)
	return nil
}
