package email

import (
	"context"
	"errors"
)

// Message is one outgoing email.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

// Delivery is what the provider reported for one send, successful or not.
type Delivery struct {
	Provider string
	Response string
}

//go:generate mockgen -destination=mock/mock_provider.go -package=mock_email . Provider

type Provider interface {
	Name() string
	Send(ctx context.Context, msg Message) (Delivery, error)
}

var (
	ErrNoRecipient = errors.New("email: no recipient")
	ErrRejected    = errors.New("email: rejected by provider")
)

const ProviderNoop = "noop"

type NoOpProvider struct{}

func (p *NoOpProvider) Name() string { return ProviderNoop }

func (p *NoOpProvider) Send(ctx context.Context, msg Message) (Delivery, error) {
	if len(msg.To) == 0 {
		return Delivery{Provider: ProviderNoop}, ErrNoRecipient
	}
	return Delivery{Provider: ProviderNoop, Response: "skipped"}, nil
}
