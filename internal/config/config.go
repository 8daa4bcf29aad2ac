// Package config loads runtime settings from SFOWEB_* environment variables
// and command-line flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const EnvPrefix = "SFOWEB"

// Secret store backends
const (
	SecretStoreEncrypted = "encrypted"
	SecretStoreKeyring   = "keyring"
)

// Keys
const (
	KeyDataDir         = "data_dir"
	KeyLogLevel        = "log_level"
	KeyLogFormat       = "log_format"
	KeyScanInterval    = "scan_interval"
	KeyHTTPTimeout     = "http_timeout"
	KeyLoginURL        = "login_url"
	KeyAppointmentsURL = "appointments_url"
	KeyEncryptionKey   = "encryption_key"
	KeySecretStore     = "secret_store"
	KeyMetricsAddr     = "metrics_addr"
	KeyWhatFilter      = "what_filter"
	KeyWebhookURL      = "webhook_url"
	KeyTelegramToken   = "telegram_bot_token"
	KeyTelegramChatID  = "telegram_chat_id"

	// KeyPassword is read by setup only and never kept in Config
	KeyPassword = "password"
)

type Config struct {
	DataDir   string `validate:"required"`
	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=json console"`

	ScanInterval time.Duration `validate:"gte=1m"`
	HTTPTimeout  time.Duration `validate:"gt=0"`

	LoginURL        string `validate:"required,url"`
	AppointmentsURL string `validate:"required,url"`
	WhatFilter      string

	SecretStore   string `validate:"oneof=encrypted keyring"`
	EncryptionKey string `validate:"required_if=SecretStore encrypted"`

	MetricsAddr string `validate:"omitempty,hostname_port"`
	WebhookURL  string `validate:"omitempty,url"`

	TelegramBotToken string `validate:"required_with=TelegramChatID"`
	TelegramChatID   string `validate:"required_with=TelegramBotToken"`
}

func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyDataDir, "~/.local/share/sfoweb")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "json")
	v.SetDefault(KeyScanInterval, "6h")
	v.SetDefault(KeyHTTPTimeout, "30s")
	v.SetDefault(KeyLoginURL, "https://sfo-web.aula.dk")
	v.SetDefault(KeyAppointmentsURL, "https://sfo-web.aula.dk/aftaler")
	v.SetDefault(KeySecretStore, SecretStoreEncrypted)

	return v
}

func NewConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		DataDir:   v.GetString(KeyDataDir),
		LogLevel:  strings.ToLower(v.GetString(KeyLogLevel)),
		LogFormat: strings.ToLower(v.GetString(KeyLogFormat)),

		ScanInterval: v.GetDuration(KeyScanInterval),
		HTTPTimeout:  v.GetDuration(KeyHTTPTimeout),

		LoginURL:        v.GetString(KeyLoginURL),
		AppointmentsURL: v.GetString(KeyAppointmentsURL),
		WhatFilter:      v.GetString(KeyWhatFilter),

		SecretStore:   strings.ToLower(v.GetString(KeySecretStore)),
		EncryptionKey: v.GetString(KeyEncryptionKey),

		MetricsAddr: v.GetString(KeyMetricsAddr),
		WebhookURL:  v.GetString(KeyWebhookURL),

		TelegramBotToken: v.GetString(KeyTelegramToken),
		TelegramChatID:   v.GetString(KeyTelegramChatID),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
