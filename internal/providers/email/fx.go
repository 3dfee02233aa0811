package email

import (
	"github.com/smallbiznis/buildingbills/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.email",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, log *zap.Logger) Provider {
	switch cfg.Email.Provider {
	case config.EmailProviderResend:
		if cfg.Email.ResendAPIKey == "" {
			log.Warn("resend selected without RESEND_API_KEY, falling back to noop email provider")
			return &NoOpProvider{}
		}
		return NewResend(ResendConfig{
			APIKey: cfg.Email.ResendAPIKey,
			URL:    cfg.Email.ResendURL,
			From:   cfg.Email.SMTPFrom,
		}, nil)
	case config.EmailProviderSMTP:
		return NewSMTP(Config{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.SMTPUsername,
			Password: cfg.Email.SMTPPassword,
			From:     cfg.Email.SMTPFrom,
		})
	default:
		return &NoOpProvider{}
	}
}
