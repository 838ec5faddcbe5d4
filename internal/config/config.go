package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Config carries every external credential and endpoint the service
// talks to. Parsed once in main and passed into the services explicitly;
// nothing reads os.Getenv after startup.
type Config struct {
	Port        string `env:"PORT" envDefault:"3333"`
	ClientURI   string `env:"CLIENT_RESULT_URI" envDefault:"paymentresult://callback"`
	CronSecret  string `env:"CRON_SECRET,notEmpty"`
	MetricsUser string `env:"METRICS_USER"`
	MetricsPass string `env:"METRICS_PASS"`
	PprofSecret string `env:"PPROF_SECRET"`

	ClerkSecretKey string `env:"CLERK_SECRET_KEY,notEmpty"`

	// Base64 encoded service account JSON; falls back to the local
	// key file when empty.
	FirebaseCredentials string `env:"FIREBASE_SERVICE_ACCOUNT_JSON"`
	FirebaseKeyFile     string `env:"FIREBASE_KEY_FILE" envDefault:"./serviceAccountKey.json"`

	Payple  Payple  `envPrefix:"PAYPLE_"`
	Receipt Receipt `envPrefix:"RECEIPT_"`
	Tracker Tracker `envPrefix:"TRACKER_"`
	SMTP    SMTP    `envPrefix:"SMTP_"`
}

// Payple is the partner identity for the payment gateway. CstID/CustKey
// authenticate every auth call; RefundKey is additionally required for
// PAYCANCEL work. Referer must match the domain registered with the
// gateway or auth is rejected.
type Payple struct {
	BaseURL      string `env:"BASE_URL" envDefault:"https://cpay.payple.kr"`
	CstID        string `env:"CST_ID,notEmpty"`
	CustKey      string `env:"CUST_KEY,notEmpty"`
	RefundKey    string `env:"REFUND_KEY"`
	Referer      string `env:"REFERER"`
	ServiceID    string `env:"SERVICE_ID"`
	ServiceKey   string `env:"SERVICE_KEY"`
	ServiceCode  string `env:"SERVICE_CODE"`
	MonthlyPrice int    `env:"MONTHLY_PRICE" envDefault:"9900"`
	GoodsName    string `env:"GOODS_NAME" envDefault:"podoMarket premium"`
}

type Receipt struct {
	BaseURL string `env:"BASE_URL"`
	APIKey  string `env:"API_KEY"`
}

type Tracker struct {
	BaseURL string `env:"BASE_URL" envDefault:"https://apis.tracker.delivery"`
	APIKey  string `env:"API_KEY"`
}

type SMTP struct {
	Host     string `env:"HOST" envDefault:"smtp.gmail.com"`
	Port     string `env:"PORT" envDefault:"587"`
	From     string `env:"FROM"`
	Password string `env:"PASSWORD"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
