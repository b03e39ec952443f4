// Package config loads service configuration from the environment.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// Config carries every credential and knob the bot needs. All required
// values are checked at startup; nothing is read from the environment
// after Parse returns.
type Config struct {
	// Telegram bot identity (messaging, moderation).
	BotToken string `env:"BOT_TOKEN,required"`

	// Telegram principal identity (authorized to create supergroups).
	TelegramAppID   int    `env:"TG_API_ID,required"`
	TelegramAppHash string `env:"TG_API_HASH,required"`
	SessionFile     string `env:"TG_SESSION_FILE" envDefault:"escrow-principal.session"`

	// BTCPay Greenfield gateway.
	BTCPayURL     string `env:"BTCPAY_URL" envDefault:"https://mainnet.demo.btcpayserver.org"`
	BTCPayAPIKey  string `env:"BTCPAY_API_KEY,required"`
	BTCPayStoreID string `env:"BTCPAY_STORE_ID,required"`

	// Webhook receiver. Secret empty disables signature verification
	// (local testing only).
	WebhookAddr   string `env:"WEBHOOK_ADDR" envDefault:"127.0.0.1:10003"`
	WebhookSecret string `env:"BTCPAY_WEBHOOK_SECRET"`

	// Debug mux with /metrics and /healthz.
	DebugAddr string `env:"DEBUG_ADDR" envDefault:"127.0.0.1:10004"`

	// Display name escrow channels are derived from, e.g. "Escrow"
	// yields titles like "Escrow #jqbdp".
	GroupBaseName string `env:"GROUP_BASE_NAME" envDefault:"Escrow"`

	GatewayTimeout time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"30s"`
	ReplyTTL       time.Duration `env:"REPLY_TTL" envDefault:"60s"`
}

// Parse reads the environment. Missing required values are a startup
// failure, never a per-call one.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "Failed parse environment")
	}
	return cfg, nil
}
