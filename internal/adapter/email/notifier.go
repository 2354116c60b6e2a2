// Package email provides an SMTP-based notifier for coordinator notices.
package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/Strob0t/SwarmPilot/internal/port/notifier"
)

const providerName = "email"

// SMTPConfig holds the configuration for SMTP connections.
type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Password string
	To       string
}

// Notifier sends coordinator notices by email.
type Notifier struct {
	cfg SMTPConfig
}

// NewNotifier creates a new email notifier.
func NewNotifier(cfg SMTPConfig) *Notifier {
	return &Notifier{cfg: cfg}
}

func (n *Notifier) Name() string { return providerName }

// Send delivers one notice to the configured recipient.
func (n *Notifier) Send(_ context.Context, notification notifier.Notification) error {
	if n.cfg.Host == "" || n.cfg.From == "" || n.cfg.To == "" {
		return notifier.ErrNotConfigured
	}

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	subject := subjectFor(notification.Level)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		n.cfg.From, n.cfg.To, subject, notification.Message)

	var auth smtp.Auth
	if n.cfg.Password != "" {
		auth = smtp.PlainAuth("", n.cfg.From, n.cfg.Password, n.cfg.Host)
	}

	return smtp.SendMail(addr, auth, n.cfg.From, []string{n.cfg.To}, []byte(msg))
}

func subjectFor(level string) string {
	switch level {
	case "success":
		return "SwarmPilot: task finished"
	case "error":
		return "SwarmPilot: session error"
	case "warning":
		return "SwarmPilot: attention needed"
	default:
		return "SwarmPilot update"
	}
}
