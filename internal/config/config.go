package config

import (
	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all environment-sourced settings. Coinbase credentials are
// deliberately absent: they are resolved at the moment of use (see
// coinbase.EnvCredentials) so that deployments which inject secrets after
// process start still work.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	// Exchange
	CoinbaseAPIURL string `env:"COINBASE_API_URL" envDefault:"https://api.coinbase.com"`

	// Trading
	ProductID        string   `env:"PRODUCT_ID" envDefault:"BTC-USDC"`
	AllowedProducts  []string `env:"ALLOWED_PRODUCTS" envSeparator:","`
	DefaultUSDAmount float64  `env:"DEFAULT_USD_AMOUNT" envDefault:"50"`

	// RequireExplicitAmount rejects buy signals without a positive
	// usd_amount instead of substituting DefaultUSDAmount.
	RequireExplicitAmount bool `env:"REQUIRE_EXPLICIT_AMOUNT" envDefault:"false"`

	// AlwaysAck answers every webhook with HTTP 200 regardless of outcome,
	// which suppresses retry storms from the alerting tool. The real outcome
	// is still reported in the response body and via the notifier.
	AlwaysAck bool `env:"ALWAYS_ACK" envDefault:"false"`

	// Notifications
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string `env:"TELEGRAM_CHAT_ID"`

	// Daily PnL report
	PnLReportEnabled bool `env:"PNL_REPORT_ENABLED" envDefault:"true"`
	PnLReportHour    int  `env:"PNL_REPORT_HOUR" envDefault:"0"` // UTC hour 0-23
}

// Load reads configuration from the environment, after loading an optional
// .env file for local development.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	return cfg, env.Parse(&cfg)
}
