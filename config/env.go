package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Firebase FirebaseConfig
	Meili    MeiliConfig
	Backend  BackendConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Search   SearchConfig
}

type ServerConfig struct {
	Port        string
	CORSOrigins []string
	RateLimit   string
	LogLevel    string
	LogFormat   string
	Environment string
}

type FirebaseConfig struct {
	// CredentialsFile is the service account JSON path. Empty switches
	// the server to in-memory stores for local development.
	CredentialsFile string
	DatabaseURL     string
	ProjectID       string
	// StreamToken authenticates the realtime database event stream.
	StreamToken string
}

type MeiliConfig struct {
	Host   string
	APIKey string
}

type BackendConfig struct {
	BaseURL string
}

type AuthConfig struct {
	JWTSecret  string
	SessionTTL time.Duration
}

type SearchConfig struct {
	Limit int
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	sessionHours, _ := strconv.Atoi(getEnv("SESSION_TTL_HOURS", "12"))
	searchLimit, _ := strconv.Atoi(getEnv("SEARCH_LIMIT", "20"))

	return Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			CORSOrigins: splitList(getEnv("CORS_ORIGINS", "")),
			RateLimit:   getEnv("RATE_LIMIT", "120-M"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "json"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Firebase: FirebaseConfig{
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
			DatabaseURL:     getEnv("FIREBASE_DATABASE_URL", ""),
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			StreamToken:     getEnv("FIREBASE_STREAM_TOKEN", ""),
		},
		Meili: MeiliConfig{
			Host:   getEnv("MEILI_HOST", ""),
			APIKey: getEnv("MEILI_API_KEY", ""),
		},
		Backend: BackendConfig{
			BaseURL: getEnv("BACKEND_BASE_URL", "http://localhost:8000"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", ""),
			SessionTTL: time.Duration(sessionHours) * time.Hour,
		},
		Search: SearchConfig{
			Limit: searchLimit,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
