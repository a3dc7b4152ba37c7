package config

import "time"

type ServiceConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	ClientURL   string `yaml:"client_url"`
	JWTSecret   string `yaml:"jwt_secret"`
}

// WebhookConfig covers the bank-transaction ingress. The API key is injected
// here rather than read from process-wide state so tests and multi-tenant
// deployments can carry different keys.
type WebhookConfig struct {
	// APIKey is the shared secret the gateway presents in the
	// Authorization header.
	APIKey string `yaml:"api_key"`

	// AmountTolerance is the absolute currency-minor-unit delta accepted
	// between the transferred and the expected amount. Zero requires an
	// exact match.
	AmountTolerance string `yaml:"amount_tolerance"`

	// PaymentTTL is how long a pending payment stays open before the
	// sweeper expires it.
	PaymentTTL time.Duration `yaml:"payment_ttl"`

	// SweepInterval is how often the expiry sweeper runs.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// RedisConfig configures the notification fan-out bridge. When Addr is empty
// the service runs single-instance with the in-process hub only.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type EmailConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	From        string `yaml:"from"`
	OrdersInbox string `yaml:"orders_inbox"`
}

// QRConfig identifies the receiving bank account the QR provider encodes.
type QRConfig struct {
	AccountNumber string `yaml:"account_number"`
	BankName      string `yaml:"bank_name"`
	BaseURL       string `yaml:"base_url"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}
