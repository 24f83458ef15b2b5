// Package email delivers outbound mail over SMTP.  Delivery is best effort:
// the auth flow never blocks or fails on a mail error.
package email

import (
    "fmt"

    mail "github.com/wneessen/go-mail"

    "github.com/karimdhz/atelier-portal/internal/config"
)

type Mailer struct {
    cfg config.Config
}

func New(cfg config.Config) *Mailer { return &Mailer{cfg: cfg} }

// Enabled reports whether SMTP delivery is configured.  Without SMTP_HOST
// and MAIL_FROM the mailer is a no-op and reset tokens only reach the
// database.
func (m *Mailer) Enabled() bool {
    return m.cfg.SMTPHost != "" && m.cfg.MailFrom != ""
}

// SendResetToken mails a password-reset token to the given address.
func (m *Mailer) SendResetToken(to, token string) error {
    if !m.Enabled() {
        return nil
    }
    msg := mail.NewMsg()
    if err := msg.From(m.cfg.MailFrom); err != nil {
        return err
    }
    if err := msg.To(to); err != nil {
        return err
    }
    msg.Subject("Password reset request")
    msg.SetBodyString(mail.TypeTextPlain, fmt.Sprintf(
        "A password reset was requested for your account.\n\n"+
            "Reset token: %s\n\n"+
            "The token expires in one hour. If you did not request this, ignore this message.\n",
        token))

    opts := []mail.Option{mail.WithPort(m.cfg.SMTPPort)}
    if m.cfg.SMTPUser != "" {
        opts = append(opts,
            mail.WithSMTPAuth(mail.SMTPAuthPlain),
            mail.WithUsername(m.cfg.SMTPUser),
            mail.WithPassword(m.cfg.SMTPPass),
        )
    }
    client, err := mail.NewClient(m.cfg.SMTPHost, opts...)
    if err != nil {
        return err
    }
    return client.DialAndSend(msg)
}
