package paddle

import "time"

// Config holds configuration for the Paddle Billing processor.
type Config struct {
	APIKey        string        `env:"PADDLE_API_KEY,required"`
	WebhookSecret string        `env:"PADDLE_WEBHOOK_SECRET,required"`
	Environment   string        `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
	CheckoutTTL   time.Duration `env:"PADDLE_CHECKOUT_TTL" envDefault:"24h"`
	// BaseURL overrides the environment's API host, e.g. for a local mock.
	BaseURL string `env:"PADDLE_BASE_URL"`
}
