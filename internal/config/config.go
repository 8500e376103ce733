package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	APIBaseURL string
	Env        string
	LogLevel   string
	LogFormat  string

	// Persistence for the session id and patient profile.
	SessionBackend string
	StatePath      string
	StateKeyPrefix string
	RedisAddr      string
	RedisPassword  string
	RedisTLS       bool

	HTTPTimeout         time.Duration
	SessionResetTimeout time.Duration

	// Hold-to-record gating
	RecordMinHold  time.Duration
	RecordMinBytes int

	RevealInterval        time.Duration
	NoticeDuration        time.Duration
	BookingNoticeDuration time.Duration
	TurnPolicy            string

	MetricsAddr    string
	AdminJWTSecret string

	AudioOutputDir string
	AudioPlayerCmd string

	// Demo backend
	DemoAddr           string
	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		APIBaseURL: strings.TrimRight(getEnv("ASSISTANT_API_BASE_URL", "http://localhost:8000/api"), "/"),
		Env:        getEnv("ENV", "development"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFormat:  strings.ToLower(getEnv("LOG_FORMAT", "text")),

		SessionBackend: strings.ToLower(strings.TrimSpace(getEnv("SESSION_BACKEND", "file"))),
		StatePath:      getEnv("STATE_PATH", defaultStatePath()),
		StateKeyPrefix: getEnv("STATE_KEY_PREFIX", "assistant"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisTLS:       getEnvAsBool("REDIS_TLS", false),

		HTTPTimeout:         getEnvAsDuration("HTTP_TIMEOUT", 120*time.Second),
		SessionResetTimeout: getEnvAsDuration("SESSION_RESET_TIMEOUT", 5*time.Second),

		RecordMinHold:  getEnvAsDuration("RECORD_MIN_HOLD", 200*time.Millisecond),
		RecordMinBytes: getEnvAsInt("RECORD_MIN_BYTES", 1000),

		RevealInterval:        getEnvAsDuration("REVEAL_INTERVAL", 8*time.Millisecond),
		NoticeDuration:        getEnvAsDuration("NOTICE_DURATION", 2200*time.Millisecond),
		BookingNoticeDuration: getEnvAsDuration("BOOKING_NOTICE_DURATION", 6*time.Second),
		TurnPolicy:            strings.ToLower(strings.TrimSpace(getEnv("TURN_POLICY", "serialize"))),

		MetricsAddr:    getEnv("METRICS_ADDR", ""),
		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		AudioOutputDir: getEnv("AUDIO_OUTPUT_DIR", ""),
		AudioPlayerCmd: getEnv("AUDIO_PLAYER_CMD", ""),

		DemoAddr:           getEnv("DEMO_ADDR", ":8000"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
	}
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), "assistant-state.json")
	}
	return filepath.Join(home, ".assistant", "state.json")
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
