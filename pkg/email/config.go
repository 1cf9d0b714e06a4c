package email

// Config holds email service configuration. Without a server token the
// service falls back to the dev sender.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"billing@familykit.local" validate:"required,email"`
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:"support@familykit.local" validate:"required,email"`
	DevOutputDir         string `env:"EMAIL_DEV_DIR" envDefault:"tmp/emails"`
}
