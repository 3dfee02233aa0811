package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	ProviderResend = "resend"

	maxResponseBytes = 64 << 10
)

type ResendConfig struct {
	APIKey  string
	URL     string
	From    string
	Timeout time.Duration
}

// ResendProvider sends through the Resend HTTP API.
type ResendProvider struct {
	cfg    ResendConfig
	client *http.Client
}

func NewResend(cfg ResendConfig, client *http.Client) *ResendProvider {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &ResendProvider{cfg: cfg, client: client}
}

func (p *ResendProvider) Name() string { return ProviderResend }

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (p *ResendProvider) Send(ctx context.Context, msg Message) (Delivery, error) {
	delivery := Delivery{Provider: ProviderResend}
	if len(msg.To) == 0 {
		return delivery, ErrNoRecipient
	}

	from := msg.From
	if from == "" {
		from = p.cfg.From
	}
	payload, err := json.Marshal(resendRequest{
		From:    from,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return delivery, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return delivery, err
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		delivery.Response = err.Error()
		return delivery, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	delivery.Response = string(body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return delivery, fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}
	return delivery, nil
}
