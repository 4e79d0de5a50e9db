package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port               string
	DatabaseURL        string
	AppEnv             string
	BaseURL            string
	FrontendURL        string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	JWTSecret          string
	AllowedEmails      []string

	RedisURL     string
	LinkCacheTTL time.Duration

	GeoAPIURL  string
	GeoTimeout time.Duration

	BcryptCost int
	CodeLength int

	ClickAsync     bool
	ClickWorkers   int
	ClickQueueSize int

	LogLevel  string
	LogFile   string
	SentryDSN string
}

func Load() *Config {
	_ = godotenv.Load() // Ignore error if .env not found (e.g. prod)

	baseURL := strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/")

	return &Config{
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        getEnv("DATABASE_URL", "file:db.sqlite"),
		AppEnv:             getEnv("APP_ENV", "local"),
		BaseURL:            baseURL,
		FrontendURL:        strings.TrimRight(getEnv("FRONTEND_URL", baseURL), "/"),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/auth/google/callback"),
		JWTSecret:          getEnv("JWT_SECRET", "secret"),
		AllowedEmails:      getEnvList("ALLOWED_EMAILS"),

		RedisURL:     getEnv("REDIS_URL", ""),
		LinkCacheTTL: getEnvDuration("LINK_CACHE_TTL", 5*time.Minute),

		GeoAPIURL:  strings.TrimRight(getEnv("GEO_API_URL", "http://ip-api.com/json"), "/"),
		GeoTimeout: getEnvDuration("GEO_TIMEOUT", 2*time.Second),

		BcryptCost: getEnvInt("BCRYPT_COST", 10),
		CodeLength: getEnvInt("CODE_LENGTH", 7),

		ClickAsync:     getEnvBool("CLICK_ASYNC", true),
		ClickWorkers:   getEnvInt("CLICK_WORKERS", 4),
		ClickQueueSize: getEnvInt("CLICK_QUEUE_SIZE", 1024),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFile:   getEnv("LOG_FILE", ""),
		SentryDSN: getEnv("SENTRY_DSN", ""),
	}
}

// AuthEnabled reports whether the management API sits behind Google login.
func (c *Config) AuthEnabled() bool {
	return c.GoogleClientID != ""
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
