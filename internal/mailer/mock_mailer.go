package mailer

import "sync"

// Email captures the arguments of a Send call.
type Email struct {
	Recipient    string
	TemplateFile string
	Data         any
}

// MockMailer records sent emails instead of delivering them.
type MockMailer struct {
	mu     sync.RWMutex
	emails []Email
}

func NewMockMailer() *MockMailer {
	return &MockMailer{
		emails: make([]Email, 0),
	}
}

func (m *MockMailer) Send(recipient, templateFile string, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.emails = append(m.emails, Email{
		Recipient:    recipient,
		TemplateFile: templateFile,
		Data:         data,
	})

	return nil
}

// Sent returns a copy of all recorded emails.
func (m *MockMailer) Sent() []Email {
	m.mu.RLock()
	defer m.mu.RUnlock()

	emails := make([]Email, len(m.emails))
	copy(emails, m.emails)

	return emails
}
