// utils/alert.go
package utils

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/gomail.v2"
)

// EmailAlerter sends administrative alert emails, e.g. when a donor
// search exhausts its radius ceiling without finding anyone.
type EmailAlerter struct {
	host string
	port int
	user string
	pass string
	to   string
}

// NewEmailAlerter reads SMTP settings from the environment. Returns
// nil when no recipient is configured, so callers can treat alerting
// as optional.
func NewEmailAlerter() *EmailAlerter {
	to := os.Getenv("ADMIN_ALERT_EMAIL")
	if to == "" {
		log.Println("ADMIN_ALERT_EMAIL not set, admin email alerts disabled")
		return nil
	}

	port := 2525
	if portStr := os.Getenv("SMTP_PORT"); portStr != "" {
		fmt.Sscanf(portStr, "%d", &port)
	}

	return &EmailAlerter{
		host: os.Getenv("SMTP_HOST"),
		port: port,
		user: os.Getenv("SMTP_USER"),
		pass: os.Getenv("SMTP_PASS"),
		to:   to,
	}
}

func (a *EmailAlerter) SendAdminAlert(subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", a.user)
	m.SetHeader("To", a.to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(a.host, a.port, a.user, a.pass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send admin alert email: %w", err)
	}
	return nil
}
