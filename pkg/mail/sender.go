// Package mail sends transactional email over SMTP. Delivery failures
// are reported to the caller but never abort the business operation
// that requested the mail.
package mail

import (
	"fmt"

	gomail "gopkg.in/gomail.v2"
)

// Sender delivers transactional mail for the CRM.
type Sender interface {
	SendAgentWelcome(to, name, tempPassword string) error
	SendLeadAssigned(to, agentName, destination, leadID string) error
}

type smtpSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender builds a sender over the given SMTP endpoint. Returns
// nil when host is empty so callers can treat email as optional and
// fall back to their degraded path.
func NewSMTPSender(host string, port int, username, password, from string) Sender {
	if host == "" {
		return nil
	}

	return &smtpSender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (s *smtpSender) SendAgentWelcome(to, name, tempPassword string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\n"+
			"An account has been created for you on TripDesk.\n\n"+
			"Email: %s\nTemporary password: %s\n\n"+
			"You will be asked to set a new password on first sign-in.\n",
		name, to, tempPassword,
	)

	return s.send(to, "Welcome to TripDesk", body)
}

func (s *smtpSender) SendLeadAssigned(to, agentName, destination, leadID string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\n"+
			"A new lead has been assigned to you.\n\n"+
			"Destination: %s\nLead: %s\n\n"+
			"Please reach out to the customer within one business day.\n",
		agentName, destination, leadID,
	)

	return s.send(to, "New lead assigned: "+destination, body)
}

func (s *smtpSender) send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send %q to %s: %w", subject, to, err)
	}
	return nil
}
