// Package email sends account and workflow notifications.
package email

import (
	"context"
	"fmt"
	"log"
	"net/mail"
	"strings"
)

type Message struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

func (m Message) HasRecipients() bool {
	return len(m.To) > 0
}

// Sender delivers messages through one provider.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// ValidAddress reports whether addr parses as a single mailbox.
func ValidAddress(addr string) bool {
	parsed, err := mail.ParseAddress(strings.TrimSpace(addr))
	return err == nil && parsed.Address != ""
}

func parseAddress(from string) string {
	start := strings.Index(from, "<")
	end := strings.Index(from, ">")
	if start >= 0 && end > start {
		return strings.TrimSpace(from[start+1 : end])
	}
	return strings.TrimSpace(from)
}

func displayName(from string) string {
	start := strings.Index(from, "<")
	if start > 0 {
		return strings.Trim(strings.TrimSpace(from[:start]), `"`)
	}
	return ""
}

// NewSender picks the delivery backend by provider name: smtp, sendgrid or
// console. Console output goes to out.
func NewSender(provider string, cfg Config, sendgridKey string, out *log.Logger) (Sender, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "smtp":
		return NewSMTPSender(cfg), nil
	case "sendgrid":
		return NewSendgridSender(sendgridKey, cfg.From), nil
	case "", "console":
		return NewConsoleSender(out, cfg.From), nil
	}
	return nil, fmt.Errorf("unsupported mail provider: %s", provider)
}
