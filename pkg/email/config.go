package email

// Config holds the sender identity and provider credentials. Both Postmark
// tokens are optional; without a server token New falls back to LogSender.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"onboarding@example.com"`
	SupportEmail         string `env:"SUPPORT_EMAIL"`
	// DevOutputDir switches to DevSender when set and no token is configured.
	DevOutputDir string `env:"EMAIL_DEV_OUTPUT_DIR"`
}
