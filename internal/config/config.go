package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port           string
	Env            string
	LogLevel       string
	DatabaseURL    string
	ClinicTimezone string

	// Scheduling
	SlotGranularity  time.Duration
	DefaultDuration  time.Duration
	AlternativeSlots int

	// Reminders
	DispatchInterval    time.Duration
	DueWindowTolerance  time.Duration
	ReminderMaxAttempts int
	ConfidenceThreshold float64

	// WhatsApp Business (Meta Cloud API)
	WhatsAppAccessToken   string
	WhatsAppPhoneNumberID string
	WhatsAppBaseURL       string
	Template24h           string
	Template2h            string

	// Twilio (SMS fallback)
	MessagingProvider string
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioFromNumber  string

	// Intent classifier
	AWSRegion      string
	BedrockModelID string

	// Events
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	AdminJWTSecret string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		ClinicTimezone: getEnv("CLINIC_TIMEZONE", "America/Sao_Paulo"),

		SlotGranularity:  getEnvAsDuration("SLOT_GRANULARITY", 30*time.Minute),
		DefaultDuration:  getEnvAsDuration("DEFAULT_APPOINTMENT_DURATION", 30*time.Minute),
		AlternativeSlots: getEnvAsInt("CONFLICT_ALTERNATIVE_SLOTS", 3),

		DispatchInterval:    getEnvAsDuration("REMINDER_DISPATCH_INTERVAL", 10*time.Minute),
		DueWindowTolerance:  getEnvAsDuration("REMINDER_DUE_TOLERANCE", 10*time.Minute),
		ReminderMaxAttempts: getEnvAsInt("REMINDER_MAX_ATTEMPTS", 3),
		ConfidenceThreshold: getEnvAsFloat("INTENT_CONFIDENCE_THRESHOLD", 0.7),

		WhatsAppAccessToken:   getEnv("WHATSAPP_ACCESS_TOKEN", ""),
		WhatsAppPhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
		WhatsAppBaseURL:       getEnv("WHATSAPP_BASE_URL", "https://graph.facebook.com/v21.0"),
		Template24h:           getEnv("WHATSAPP_TEMPLATE_24H", "lembrete_24h"),
		Template2h:            getEnv("WHATSAPP_TEMPLATE_2H", "lembrete_2h"),

		MessagingProvider: strings.ToLower(strings.TrimSpace(getEnv("MESSAGING_PROVIDER", "auto"))),
		TwilioAccountSID:  getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:   getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber:  getEnv("TWILIO_FROM_NUMBER", ""),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		BedrockModelID: getEnv("BEDROCK_MODEL_ID", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
	}
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a fallback
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as a boolean with a fallback
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsFloat gets an environment variable as a float with a fallback
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsDuration gets an environment variable as a duration with a fallback
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
