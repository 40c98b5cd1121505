package common

import (
	"sync"

	"github.com/rs/zerolog"
)

// EmailSender defines the contract for sending emails.
type EmailSender interface {
	Send(to, subject, html string) error
}

// Email represents a single email message captured by InMemoryEmail.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// InMemoryEmail records messages instead of delivering them. Safe for concurrent use.
type InMemoryEmail struct {
	mu     sync.Mutex
	outbox []Email
}

// Send records the email in memory.
func (m *InMemoryEmail) Send(to, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outbox = append(m.outbox, Email{To: to, Subject: subject, HTML: html})
	return nil
}

// Outbox returns a copy of the recorded messages.
func (m *InMemoryEmail) Outbox() []Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Email(nil), m.outbox...)
}

// LogEmailSender writes outgoing mail to the structured log. Used until an SMTP relay is configured.
type LogEmailSender struct {
	Logger zerolog.Logger
	From   string
}

// Send implements EmailSender.
func (l LogEmailSender) Send(to, subject, html string) error {
	l.Logger.Info().
		Str("from", l.From).
		Str("to", to).
		Str("subject", subject).
		Int("body_bytes", len(html)).
		Msg("email_sent")
	return nil
}
