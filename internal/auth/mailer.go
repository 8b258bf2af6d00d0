package auth

import (
	"fmt"
	"log"
	"net/smtp"
)

// Mailer delivers one-time codes. Message rendering stays minimal here;
// templating belongs to whatever mail service fronts this in production.
type Mailer interface {
	SendOTP(to, subject, code string) error
}

type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
}

func NewSMTPMailer(host string, port int, from, username, password string) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPMailer{
		addr: fmt.Sprintf("%s:%d", host, port),
		from: from,
		auth: auth,
	}
}

func (m *SMTPMailer) SendOTP(to, subject, code string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\nYour code is %s. It expires in 10 minutes.\r\n",
		m.from, to, subject, code)

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// LogMailer writes codes to the process log instead of sending mail.
// For local development only.
type LogMailer struct{}

func (LogMailer) SendOTP(to, subject, code string) error {
	log.Printf("mail to %s (%s): code %s", to, subject, code)
	return nil
}
