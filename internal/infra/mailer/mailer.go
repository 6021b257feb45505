package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"degree_plan_review/internal/domain/notification"
	"degree_plan_review/internal/infra/config"

	mail "github.com/go-mail/mail/v2"
	"github.com/sirupsen/logrus"
)

type dialer interface {
	DialAndSend(m ...*mail.Message) error
}

// Mailer delivers review notices to the student's e-mail address over SMTP.
type Mailer struct {
	from   string
	dialer dialer
	logger *logrus.Entry
}

func New(cfg config.SMTPConfig, logger *logrus.Entry) *Mailer {
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)

	// STARTTLS is mandatory on the submission port.
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: cfg.SkipTLSVerify, // development relays only
	}
	d.Timeout = 10 * time.Second

	return &Mailer{from: cfg.From, dialer: d, logger: logger}
}

func (m *Mailer) Name() string { return "email" }

func (m *Mailer) Send(ctx context.Context, n notification.Notice) error {
	if n.StudentEmail == "" {
		m.logger.WithFields(logrus.Fields{
			"notice_id":  n.ID,
			"student_id": n.StudentID,
		}).Debug("Student has no e-mail address, skipping")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", n.StudentEmail)
	msg.SetHeader("Subject", n.Subject())
	msg.SetBody("text/plain", n.Body())

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail to student %d: %w", n.StudentID, err)
	}
	return nil
}
