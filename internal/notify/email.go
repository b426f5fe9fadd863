package notify

import (
	"fmt"
	"net/smtp"
)

// EmailSender sends dose-reminder emails over SMTP.
// Nil-safe: when not configured, all methods are no-ops.
type EmailSender struct {
	host     string
	port     int
	sender   string
	password string
}

// NewEmailSender creates a sender from SMTP settings. Returns nil when the
// host or sender address is empty (email delivery disabled).
func NewEmailSender(host string, port int, sender, password string) *EmailSender {
	if host == "" || sender == "" {
		return nil
	}
	return &EmailSender{host: host, port: port, sender: sender, password: password}
}

// Configured reports whether email delivery is available.
func (s *EmailSender) Configured() bool { return s != nil }

// SendDoseReminder sends a plain text reminder email.
func (s *EmailSender) SendDoseReminder(to, name, peptideName string) error {
	if s == nil {
		return nil // no-op when not configured
	}

	greeting := "Hi"
	if name != "" {
		greeting = "Hi " + name
	}
	if peptideName == "" {
		peptideName = "your peptide protocol"
	}

	subject := "Dose Reminder"
	body := fmt.Sprintf("%s,\n\nIt's almost time for your %s dose.\n\n— Reset Biology", greeting, peptideName)

	msg := []byte("To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" + body + "\r\n")

	auth := smtp.PlainAuth("", s.sender, s.password, s.host)
	address := fmt.Sprintf("%s:%d", s.host, s.port)

	if err := smtp.SendMail(address, auth, s.sender, []string{to}, msg); err != nil {
		return fmt.Errorf("send reminder email: %w", err)
	}
	return nil
}
