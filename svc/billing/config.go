package billing

import "time"

// Config holds the billing service settings. Infrastructure settings live
// in their own packages (pg.Config, redis.Config, paddle.Config, email.Config).
type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"development" validate:"oneof=development test staging production"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"familykit"`
	LogLevel    string `env:"LOG_LEVEL"`

	FreePlanID string `env:"FREE_PLAN_ID" envDefault:"free" validate:"required"`
	PlansFile  string `env:"PLANS_FILE" envDefault:"plans.yaml" validate:"required"`

	CheckoutSuccessURL string        `env:"CHECKOUT_SUCCESS_URL" envDefault:"http://localhost:8080/billing/success" validate:"required,url"`
	CheckoutCancelURL  string        `env:"CHECKOUT_CANCEL_URL" envDefault:"http://localhost:8080/billing" validate:"required,url"`
	CheckoutLockTTL    time.Duration `env:"CHECKOUT_LOCK_TTL" envDefault:"2m" validate:"gt=0"`
	CheckoutLockPrefix string        `env:"CHECKOUT_LOCK_PREFIX" envDefault:"familykit:checkout:"`
	CheckoutRate       float64       `env:"CHECKOUT_RATE_PER_SECOND" envDefault:"0.2" validate:"gt=0"`
	CheckoutBurst      int           `env:"CHECKOUT_RATE_BURST" envDefault:"3" validate:"gte=1"`

	JournalPrefix string        `env:"JOURNAL_KEY_PREFIX" envDefault:"familykit:reconcile:"`
	JournalTTL    time.Duration `env:"JOURNAL_TTL" envDefault:"720h" validate:"gt=0"`

	WebhookMaxBodyBytes int64 `env:"WEBHOOK_MAX_BODY_BYTES" envDefault:"1048576" validate:"gt=0"`
}
