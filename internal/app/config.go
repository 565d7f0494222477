package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr      string
	PublicBaseURL string
	DatabaseURL   string
	RedisURL      string
	NATSURL       string
	SentryDSN     string
	Environment   string

	// JWT Authentication
	JWTSecret string
	JWTExpiry time.Duration

	// Intent detection (any OpenAI-compatible endpoint)
	OpenAIAPIKey string
	LLMBaseURL   string
	LLMModel     string
	LLMTimeout   time.Duration
	LLMPrompt    string // replaces the built-in intent prompt when set

	// Speech providers
	DeepgramAPIKey   string
	STTModel         string
	ElevenLabsAPIKey string
	TTSVoiceID       string // fixed voice, empty picks one per language
	TTSModelID       string
	TTSStability     float64 // 0.0-1.0, negative for default
	TTSSimilarity    float64 // 0.0-1.0, negative for default

	// Voice settings
	DefaultLanguage   string
	DefaultCategory   string
	DefaultOwnerID    string
	MaxRecordingBytes int
	ProductCacheTTL   time.Duration
	EventRetention    time.Duration // how long voice turn events are kept

	// Sharing
	ProductBaseURL    string
	ShareDestinations []string // empty offers every configured backend

	TwilioAccountSID   string
	TwilioAuthToken    string
	TwilioSMSFrom      string
	TwilioWhatsAppFrom string
	ShareSMSTo         string
	ShareWhatsAppTo    string

	SendGridAPIKey string
	ShareEmailFrom string
	ShareEmailTo   string

	DiscordWebhookURL string

	APNsKeyPath    string
	APNsKeyID      string
	APNsTeamID     string
	APNsBundleID   string
	APNsProduction bool

	MarketplaceSubjectPrefix string
}

func LoadConfigFromEnv() Config {
	jwtExpiry, err := time.ParseDuration(getenv("JWT_EXPIRY", "24h"))
	if err != nil {
		jwtExpiry = 24 * time.Hour
	}

	return Config{
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		PublicBaseURL: getenv("PUBLIC_BASE_URL", "http://localhost:8080"),
		DatabaseURL:   getenv("DATABASE_URL", ""),
		RedisURL:      getenv("REDIS_URL", ""),
		NATSURL:       getenv("NATS_URL", ""),
		SentryDSN:     getenv("SENTRY_DSN", ""),
		Environment:   getenv("ENVIRONMENT", "development"),

		JWTSecret: os.Getenv("JWT_SECRET"), // Required - no fallback
		JWTExpiry: jwtExpiry,

		OpenAIAPIKey: getenv("OPENAI_API_KEY", ""),
		LLMBaseURL:   getenv("LLM_BASE_URL", ""),
		LLMModel:     getenv("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeout:   time.Duration(getenvIntClamped("LLM_TIMEOUT_MS", 8000, 500, 30000)) * time.Millisecond,
		LLMPrompt:    os.Getenv("LLM_SYSTEM_PROMPT"),

		DeepgramAPIKey:   getenv("DEEPGRAM_API_KEY", ""),
		STTModel:         getenv("STT_MODEL", "nova-2"),
		ElevenLabsAPIKey: getenv("ELEVENLABS_API_KEY", ""),
		TTSVoiceID:       getenv("TTS_VOICE_ID", ""),
		TTSModelID:       getenv("TTS_MODEL_ID", "eleven_multilingual_v2"),
		TTSStability:     getenvFloatClamped("TTS_STABILITY", -1, -1, 1),
		TTSSimilarity:    getenvFloatClamped("TTS_SIMILARITY", -1, -1, 1),

		DefaultLanguage:   getenv("DEFAULT_LANGUAGE", "en-IN"),
		DefaultCategory:   getenv("DEFAULT_CATEGORY", "General"),
		DefaultOwnerID:    getenv("DEFAULT_OWNER_ID", "default-seller"),
		MaxRecordingBytes: getenvIntClamped("MAX_RECORDING_BYTES", 10<<20, 64<<10, 50<<20),
		ProductCacheTTL:   time.Duration(getenvIntClamped("PRODUCT_CACHE_TTL_SECONDS", 30, 1, 3600)) * time.Second,
		EventRetention:    time.Duration(getenvIntClamped("EVENT_RETENTION_DAYS", 30, 1, 365)) * 24 * time.Hour,

		ProductBaseURL:    getenv("PRODUCT_BASE_URL", "https://vocalkart.app"),
		ShareDestinations: parseList(os.Getenv("SHARE_DESTINATIONS")),

		TwilioAccountSID:   getenv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:    getenv("TWILIO_AUTH_TOKEN", ""),
		TwilioSMSFrom:      getenv("TWILIO_SMS_FROM", ""),
		TwilioWhatsAppFrom: getenv("TWILIO_WHATSAPP_FROM", ""),
		ShareSMSTo:         getenv("SHARE_SMS_TO", ""),
		ShareWhatsAppTo:    getenv("SHARE_WHATSAPP_TO", ""),

		SendGridAPIKey: getenv("SENDGRID_API_KEY", ""),
		ShareEmailFrom: getenv("SHARE_EMAIL_FROM", ""),
		ShareEmailTo:   getenv("SHARE_EMAIL_TO", ""),

		DiscordWebhookURL: getenv("DISCORD_WEBHOOK_URL", ""),

		APNsKeyPath:    getenv("APNS_KEY_PATH", ""),
		APNsKeyID:      getenv("APNS_KEY_ID", ""),
		APNsTeamID:     getenv("APNS_TEAM_ID", ""),
		APNsBundleID:   getenv("APNS_BUNDLE_ID", ""),
		APNsProduction: getenvBool("APNS_PRODUCTION", false),

		MarketplaceSubjectPrefix: getenv("MARKETPLACE_SUBJECT_PREFIX", "vocalkart.marketplace"),
	}
}

// parseList splits a comma separated value, dropping blanks.
func parseList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntClamped(k string, def, min, max int) int {
	v, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func getenvFloatClamped(k string, def, min, max float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(k), 64)
	if err != nil {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func getenvBool(k string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}
