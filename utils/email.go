package utils

import (
	"crypto/tls"
	"errors"
	"net/smtp"

	"github.com/jordan-wright/email"
)

type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Pass     string
	From     string
	TLS      bool
	StartTLS bool
}

// Enabled reports whether enough settings are present to send mail.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.Port != "" && c.User != "" && c.Pass != "" && c.From != ""
}

// SendMail sends an HTML mail.
func SendMail(cfg SMTPConfig, to, subject, html string) error {
	if !cfg.Enabled() {
		return errors.New("smtp config missing")
	}
	if to == "" {
		return errors.New("recipient missing")
	}

	e := email.NewEmail()
	e.From = cfg.From
	e.To = []string{to}
	e.Subject = subject
	e.HTML = []byte(html)

	addr := cfg.Host + ":" + cfg.Port
	auth := smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)
	tlsConfig := &tls.Config{ServerName: cfg.Host}

	if cfg.TLS {
		return e.SendWithTLS(addr, auth, tlsConfig)
	}
	if cfg.StartTLS {
		return e.SendWithStartTLS(addr, auth, tlsConfig)
	}
	return e.Send(addr, auth)
}
