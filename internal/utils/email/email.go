package email

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/badgepay/badgepay/internal/config"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending ops alert emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// SendCardBlockedAlert notifies the admin mailbox that a card was blocked
// after too many failed PIN attempts
func (s *Sender) SendCardBlockedAlert(cardID string, attempts int) error {
	if s.cfg.AdminEmail == "" {
		s.logger.Debugf("No admin email configured, skipping blocked-card alert for %s", cardID)
		return nil
	}

	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{s.cfg.AdminEmail}
	e.Subject = "Card blocked after failed PIN attempts"

	body := fmt.Sprintf(
		"Card %s was blocked at %s after %d consecutive failed PIN attempts.\n"+
			"The card stays blocked until an operator re-issues it.\n",
		cardID, time.Now().Format("2006-01-02 15:04:05"), attempts,
	)
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send blocked-card alert to %s: %v", s.cfg.AdminEmail, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", s.cfg.AdminEmail, e.Subject)
	return nil
}
