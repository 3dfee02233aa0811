package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

const ProviderSMTP = "smtp"

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPProvider struct {
	cfg      Config
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTP(cfg Config) *SMTPProvider {
	return &SMTPProvider{cfg: cfg, sendMail: smtp.SendMail}
}

func (p *SMTPProvider) Name() string { return ProviderSMTP }

func (p *SMTPProvider) Send(ctx context.Context, msg Message) (Delivery, error) {
	delivery := Delivery{Provider: ProviderSMTP}
	if len(msg.To) == 0 {
		return delivery, ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return delivery, err
	}

	from := msg.From
	if strings.TrimSpace(from) == "" {
		from = p.cfg.From
	}

	var auth smtp.Auth
	if p.cfg.Username != "" {
		auth = smtp.PlainAuth("", p.cfg.Username, p.cfg.Password, p.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", p.cfg.Host, p.cfg.Port)

	if err := p.sendMail(addr, auth, envelopeAddress(from), msg.To, buildMIME(from, msg)); err != nil {
		delivery.Response = err.Error()
		return delivery, err
	}
	delivery.Response = "accepted"
	return delivery, nil
}

func buildMIME(from string, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(msg.HTML)
	return []byte(b.String())
}

// envelopeAddress strips a display name: "Bills <a@b.c>" -> "a@b.c".
func envelopeAddress(from string) string {
	start := strings.LastIndex(from, "<")
	end := strings.LastIndex(from, ">")
	if start >= 0 && end > start {
		return from[start+1 : end]
	}
	return strings.TrimSpace(from)
}
