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
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// LLM providers
	GeminiAPIKey           string
	GeminiFlashModel       string
	GeminiProModel         string
	OpenAIAPIKey           string
	OpenAIModel            string
	OpenAIBaseURL          string
	LLMTimeout             time.Duration
	VerificationFailClosed bool
	ImageMaxBytes          int64
	KeywordsFile           string

	// Naver TalkTalk
	TalkTalkAPIURL       string
	TalkTalkChunkRunes   int
	TalkTalkTypingDelay  time.Duration
	TalkTalkQuickReplies []string

	// Conversation memory and throttling
	ContextMaxTurns   int
	ContextTTL        time.Duration
	RateLimitMax      int
	RateLimitWindow   time.Duration
	AdminRateLimitMax int

	// Admin surface
	AdminJWTSecret     string
	SessionTTL         time.Duration
	LoginMaxFailures   int
	LoginLockDuration  time.Duration
	CORSAllowedOrigins []string
	StoreCacheTTL      time.Duration

	// Cloudflare R2 (S3-compatible) object storage
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2Bucket          string
	R2PublicBaseURL   string
	R2EndpointURL     string

	// AWS (SES for owner emails)
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	EmailProvider      string
	SESFromEmail       string

	// SendGrid Email Configuration
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	// Reservation reminders
	ReminderPollInterval time.Duration
	ReminderLeadTimes    []time.Duration
	ReminderTimezone     string
	ReminderMaxAttempts  int
	// WorkerMetricsAddr exposes /metrics from background workers when set.
	WorkerMetricsAddr string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		GeminiAPIKey:           getEnv("GEMINI_API_KEY", ""),
		GeminiFlashModel:       getEnv("GEMINI_FLASH_MODEL", "gemini-2.0-flash"),
		GeminiProModel:         getEnv("GEMINI_PRO_MODEL", "gemini-1.5-pro"),
		OpenAIAPIKey:           getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:            getEnv("OPENAI_MODEL", "gpt-4o"),
		OpenAIBaseURL:          getEnv("OPENAI_BASE_URL", ""),
		LLMTimeout:             getEnvAsDuration("LLM_TIMEOUT", 25*time.Second),
		VerificationFailClosed: getEnvAsBool("VERIFICATION_FAIL_CLOSED", false),
		ImageMaxBytes:          int64(getEnvAsInt("IMAGE_MAX_BYTES", 5<<20)),
		KeywordsFile:           getEnv("KEYWORDS_FILE", ""),

		TalkTalkAPIURL:       getEnv("TALKTALK_API_URL", "https://gw.talk.naver.com/chatbot/v1/event"),
		TalkTalkChunkRunes:   getEnvAsInt("TALKTALK_CHUNK_RUNES", 300),
		TalkTalkTypingDelay:  getEnvAsDuration("TALKTALK_TYPING_DELAY", 40*time.Millisecond),
		TalkTalkQuickReplies: getEnvAsList("TALKTALK_QUICK_REPLIES", []string{"영업시간", "위치 안내", "예약 문의"}),

		ContextMaxTurns:   getEnvAsInt("CONTEXT_MAX_TURNS", 20),
		ContextTTL:        getEnvAsDuration("CONTEXT_TTL", 24*time.Hour),
		RateLimitMax:      getEnvAsInt("RATE_LIMIT_MAX", 30),
		RateLimitWindow:   getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
		AdminRateLimitMax: getEnvAsInt("ADMIN_RATE_LIMIT_MAX", 120),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		SessionTTL:         getEnvAsDuration("SESSION_TTL", 7*24*time.Hour),
		LoginMaxFailures:   getEnvAsInt("LOGIN_MAX_FAILURES", 5),
		LoginLockDuration:  getEnvAsDuration("LOGIN_LOCK_DURATION", 15*time.Minute),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		StoreCacheTTL:      getEnvAsDuration("STORE_CACHE_TTL", 5*time.Minute),

		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:          getEnv("R2_BUCKET", ""),
		R2PublicBaseURL:   getEnv("R2_PUBLIC_BASE_URL", ""),
		R2EndpointURL:     getEnv("R2_ENDPOINT_URL", ""),

		AWSRegion:          getEnv("AWS_REGION", "ap-northeast-2"),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		EmailProvider:      strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "sendgrid"))),
		SESFromEmail:       getEnv("SES_FROM_EMAIL", ""),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "XIVIX AI"),

		ReminderPollInterval: getEnvAsDuration("REMINDER_POLL_INTERVAL", time.Minute),
		ReminderLeadTimes:    getEnvAsDurations("REMINDER_LEAD_TIMES", []time.Duration{24 * time.Hour, time.Hour}),
		ReminderTimezone:     getEnv("REMINDER_TZ", "Asia/Seoul"),
		ReminderMaxAttempts:  getEnvAsInt("REMINDER_MAX_ATTEMPTS", 3),
		WorkerMetricsAddr:    getEnv("METRICS_ADDR", ""),
	}
}

// R2Endpoint returns the S3 API endpoint for the configured R2 account.
func (c *Config) R2Endpoint() string {
	if c.R2EndpointURL != "" {
		return c.R2EndpointURL
	}
	if c.R2AccountID == "" {
		return ""
	}
	return "https://" + c.R2AccountID + ".r2.cloudflarestorage.com"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
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

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvAsDurations parses a comma separated list such as "24h,1h". Any
// unparsable entry makes the whole value fall back to the default.
func getEnvAsDurations(key string, defaultValue []time.Duration) []time.Duration {
	parts := getEnvAsList(key, nil)
	if len(parts) == 0 {
		return defaultValue
	}
	out := make([]time.Duration, 0, len(parts))
	for _, part := range parts {
		d, err := time.ParseDuration(part)
		if err != nil || d <= 0 {
			return defaultValue
		}
		out = append(out, d)
	}
	return out
}
