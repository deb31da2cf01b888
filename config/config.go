package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	DBConnectAttempts int

	MaxConcurrency int
	MaxURLs        int
	RateLimitMs    int
	SkipKnown      bool

	FetchTimeoutMs int
	FetchEngine    string
	UserAgent      string
	ChromeBin      string
	TargetDomain   string

	RecentLimit   int
	HTTPAddr      string
	LogLevel      string
	ReportCSVPath string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() *Config {
	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "listings_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		DBConnectAttempts: getEnvInt("DB_CONNECT_ATTEMPTS", 10),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 5),
		MaxURLs:        getEnvInt("MAX_URLS", 50),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 0),
		SkipKnown:      getEnvBool("SKIP_KNOWN", true),

		FetchTimeoutMs: getEnvInt("FETCH_TIMEOUT_MS", 20000),
		FetchEngine:    strings.ToLower(getEnv("FETCH_ENGINE", "http")),
		UserAgent:      getEnv("USER_AGENT", defaultUserAgent),
		ChromeBin:      getEnv("CHROME_BIN", ""),
		TargetDomain:   strings.ToLower(getEnv("TARGET_DOMAIN", "rightmove.co.uk")),

		RecentLimit:   getEnvInt("RECENT_LIMIT", 200),
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		ReportCSVPath: getEnv("REPORT_CSV_PATH", ""),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// FetchTimeout returns the per-request fetch timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMs) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
