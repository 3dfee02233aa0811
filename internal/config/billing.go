package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// BillingConfig carries the tunables that can change without a restart.
type BillingConfig struct {
	Currency     string             `mapstructure:"currency"`
	Timezone     string             `mapstructure:"timezone"`
	AppBaseURL   string             `mapstructure:"appBaseUrl"`
	EmailFrom    string             `mapstructure:"emailFrom"`
	Notification NotificationConfig `mapstructure:"notification"`
}

type NotificationConfig struct {
	SendTimeout time.Duration `mapstructure:"sendTimeout"`
	Concurrency int           `mapstructure:"concurrency"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		Currency:   "INR",
		Timezone:   "Asia/Kolkata",
		AppBaseURL: "http://localhost:8080",
		EmailFrom:  "Building Bills <noreply@example.com>",
		Notification: NotificationConfig{
			SendTimeout: 10 * time.Second,
			Concurrency: 4,
		},
	}
}

// Location resolves the configured timezone, falling back to UTC.
func (c BillingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(strings.TrimSpace(c.Timezone))
	if err != nil || c.Timezone == "" {
		return time.UTC
	}
	return loc
}

type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

// NewStaticBillingConfigHolder wraps a fixed config, mostly for tests.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewBillingConfigHolder(log *zap.Logger) (*BillingConfigHolder, error) {
	log = log.Named("billing.config")
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/buildingbills/config")
	v.AddConfigPath("/etc/buildingbills")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BUILDINGBILLS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingConfig()
	v.SetDefault("billing.currency", defaults.Currency)
	v.SetDefault("billing.timezone", defaults.Timezone)
	v.SetDefault("billing.appBaseUrl", defaults.AppBaseURL)
	v.SetDefault("billing.emailFrom", defaults.EmailFrom)
	v.SetDefault("billing.notification.sendTimeout", defaults.Notification.SendTimeout)
	v.SetDefault("billing.notification.concurrency", defaults.Notification.Concurrency)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return nil, err
	}
	if err := validateBillingConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticBillingConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingConfig
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validateBillingConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *BillingConfigHolder) Get() BillingConfig {
	return h.current.Load().(BillingConfig)
}

func validateBillingConfig(cfg BillingConfig) error {
	if strings.TrimSpace(cfg.Currency) == "" {
		return errors.New("billing.currency cannot be empty")
	}
	if cfg.Notification.Concurrency <= 0 {
		return errors.New("billing.notification.concurrency must be positive")
	}
	if cfg.Notification.SendTimeout <= 0 {
		return errors.New("billing.notification.sendTimeout must be positive")
	}
	return nil
}
