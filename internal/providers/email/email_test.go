package email

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"

	"github.com/smallbiznis/buildingbills/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStatementReady(t *testing.T) {
	msg, err := StatementReady(StatementNotice{
		From:       "Bills <noreply@example.com>",
		To:         "a1@example.com",
		UnitCode:   "A1",
		Period:     "2024-03",
		Label:      "March 2024",
		AppBaseURL: "https://bills.example.com/",
	})
	require.NoError(t, err)

	assert.Equal(t, "Statement ready for March 2024", msg.Subject)
	assert.Equal(t, []string{"a1@example.com"}, msg.To)
	assert.Contains(t, msg.HTML, "Hello Flat A1")
	assert.Contains(t, msg.HTML, `href="https://bills.example.com/me/2024-03"`)
}

func TestStatementReadyWithoutBaseURL(t *testing.T) {
	msg, err := StatementReady(StatementNotice{To: "a1@example.com", UnitCode: "A1", Period: "2024-03", Label: "March 2024"})
	require.NoError(t, err)
	assert.NotContains(t, msg.HTML, "href")
}

func TestResendSend(t *testing.T) {
	var got resendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"msg_1"}`))
	}))
	defer srv.Close()

	p := NewResend(ResendConfig{APIKey: "re_test", URL: srv.URL, From: "noreply@example.com"}, srv.Client())
	delivery, err := p.Send(context.Background(), Message{To: []string{"a1@example.com"}, Subject: "hi", HTML: "<p>x</p>"})
	require.NoError(t, err)

	assert.Equal(t, ProviderResend, delivery.Provider)
	assert.JSONEq(t, `{"id":"msg_1"}`, delivery.Response)
	assert.Equal(t, "noreply@example.com", got.From)
	assert.Equal(t, []string{"a1@example.com"}, got.To)
}

func TestResendRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid to"}`))
	}))
	defer srv.Close()

	p := NewResend(ResendConfig{APIKey: "re_test", URL: srv.URL}, srv.Client())
	delivery, err := p.Send(context.Background(), Message{To: []string{"bad"}})
	require.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, delivery.Response, "invalid to")
}

func TestSMTPSend(t *testing.T) {
	p := NewSMTP(Config{Host: "mail.local", Port: 2525, From: "Bills <noreply@example.com>"})

	var gotAddr, gotFrom string
	var gotMsg []byte
	p.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotMsg = addr, from, msg
		return nil
	}

	delivery, err := p.Send(context.Background(), Message{To: []string{"a1@example.com"}, Subject: "Statement", HTML: "<p>x</p>"})
	require.NoError(t, err)
	assert.Equal(t, "accepted", delivery.Response)
	assert.Equal(t, "mail.local:2525", gotAddr)
	assert.Equal(t, "noreply@example.com", gotFrom)
	assert.True(t, strings.Contains(string(gotMsg), "Subject: Statement\r\n"))

	p.sendMail = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("550 mailbox unavailable") }
	delivery, err = p.Send(context.Background(), Message{To: []string{"a1@example.com"}})
	require.Error(t, err)
	assert.Equal(t, "550 mailbox unavailable", delivery.Response)
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Config{Email: config.EmailConfig{Provider: config.EmailProviderResend}}
	assert.Equal(t, ProviderNoop, NewFromConfig(cfg, zap.NewNop()).Name())

	cfg.Email.ResendAPIKey = "re_test"
	assert.Equal(t, ProviderResend, NewFromConfig(cfg, zap.NewNop()).Name())

	cfg.Email.Provider = config.EmailProviderSMTP
	assert.Equal(t, ProviderSMTP, NewFromConfig(cfg, zap.NewNop()).Name())
}
