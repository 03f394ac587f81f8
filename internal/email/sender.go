package email

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type Sender interface {
	Send(job EmailJob) error
}

// SMTPSender delivers plain-text mail over SMTP.
type SMTPSender struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

func NewSMTPSender(cfg Config) *SMTPSender {
	return &SMTPSender{
		dialer:   gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
		from:     cfg.From,
		fromName: cfg.FromName,
	}
}

func (s *SMTPSender) message(job EmailJob) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", fmt.Sprintf("%s <%s>", s.fromName, s.from))
	if job.Name != "" {
		m.SetAddressHeader("To", job.To, job.Name)
	} else {
		m.SetHeader("To", job.To)
	}
	m.SetHeader("Subject", job.Subject)
	m.SetBody("text/plain", job.Body)
	return m
}

func (s *SMTPSender) Send(job EmailJob) error {
	return s.dialer.DialAndSend(s.message(job))
}
