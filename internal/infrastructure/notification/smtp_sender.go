package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/storefront/backend/internal/domain/shared"
)

// SMTPConfig holds mail relay settings
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// Validate checks the configuration
func (c *SMTPConfig) Validate() error {
	if c == nil || c.Host == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "SMTP host is required")
	}
	if c.Port <= 0 {
		return shared.NewDomainError("VALIDATION_ERROR", "SMTP port is required")
	}
	if c.From == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "SMTP from address is required")
	}
	return nil
}

// SMTPSender delivers messages over a plain SMTP relay
type SMTPSender struct {
	config *SMTPConfig
}

// NewSMTPSender creates a new SMTP sender
func NewSMTPSender(config *SMTPConfig) (*SMTPSender, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &SMTPSender{config: config}, nil
}

// Send delivers a single message
func (s *SMTPSender) Send(_ context.Context, msg Message) error {
	if msg.To == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Recipient address is required")
	}

	var sb strings.Builder
	sb.WriteString("From: " + s.config.From + "\r\n")
	sb.WriteString("To: " + msg.To + "\r\n")
	sb.WriteString("Subject: " + msg.Subject + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(msg.Body)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	var auth smtp.Auth
	if s.config.Username != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}

	return smtp.SendMail(addr, auth, s.config.From, []string{msg.To}, []byte(sb.String()))
}

// Ensure SMTPSender implements Sender
var _ Sender = (*SMTPSender)(nil)
