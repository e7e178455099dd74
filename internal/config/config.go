package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string

	// Business identity and hours
	BusinessName     string
	AgentName        string
	BusinessTimezone string
	ForwardingNumber string
	FallbackContact  string

	// Knowledge base
	FAQPath string

	// Persistence
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Google Calendar
	CalendarID             string
	GoogleCredentialsFile  string
	CalendarRequestTimeout time.Duration

	// Summarization LLM
	GeminiAPIKey         string
	GeminiModelID        string
	GeminiFallbackModel  string
	SummarizationTimeout time.Duration

	// Email (provider selected by EmailProvider: "sendgrid", "ses" or "")
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	AWSRegion         string

	// SMS (Twilio)
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	// Booking policy
	ReminderLeadTime time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		BusinessName:     getEnv("BUSINESS_NAME", "Zyptics"),
		AgentName:        getEnv("AGENT_NAME", "Rachel"),
		BusinessTimezone: getEnv("BUSINESS_TIMEZONE", "UTC"),
		ForwardingNumber: getEnv("FORWARDING_NUMBER", ""),
		FallbackContact:  getEnv("FALLBACK_CONTACT", "info@zyptics.com"),

		FAQPath: getEnv("FAQ_PATH", "faqs.json"),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		CalendarID:             getEnv("CALENDAR_ID", "primary"),
		GoogleCredentialsFile:  getEnv("GOOGLE_CREDENTIALS_FILE", "service_account.json"),
		CalendarRequestTimeout: getEnvAsDuration("CALENDAR_REQUEST_TIMEOUT", 15*time.Second),

		GeminiAPIKey:         getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:        getEnv("GEMINI_MODEL_ID", "gemini-1.5-flash"),
		GeminiFallbackModel:  getEnv("GEMINI_FALLBACK_MODEL_ID", ""),
		SummarizationTimeout: getEnvAsDuration("SUMMARIZATION_TIMEOUT", 30*time.Second),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "sendgrid"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Zyptics"),
		AWSRegion:         getEnv("AWS_REGION", "us-east-1"),

		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: getEnv("TWILIO_FROM_NUMBER", ""),

		ReminderLeadTime: getEnvAsDuration("REMINDER_LEAD_TIME", 24*time.Hour),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
