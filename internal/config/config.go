package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	HistoryMongo    = "mongo"
	HistoryPostgres = "postgres"
	HistoryMemory   = "memory"
	HistoryNone     = "none"
)

type Config struct {
	ServerAddr string

	ShopifyAPIVersion string
	ShopifyAPISecret  string
	ShopifyEndpoint   string
	ShopifyTimeout    time.Duration

	HistoryBackend string
	MongoURI       string
	MongoDatabase  string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	LogLevel  string
	LogFormat string
}

func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		ServerAddr:        getEnv("SERVER_ADDR", ":8080"),
		ShopifyAPIVersion: getEnv("SHOPIFY_API_VERSION", "2024-10"),
		ShopifyAPISecret:  getEnv("SHOPIFY_API_SECRET", ""),
		ShopifyEndpoint:   getEnv("SHOPIFY_ENDPOINT", ""),
		ShopifyTimeout:    getDuration("SHOPIFY_TIMEOUT", 15*time.Second),
		MongoURI:          getEnv("MONGODB_URI", ""),
		MongoDatabase:     getEnv("MONGODB_DATABASE", "kings_builder"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBUser:            getEnv("DB_USER", "postgres"),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBName:            getEnv("DB_NAME", "kings_builder"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "console"),
	}
	cfg.HistoryBackend = resolveHistoryBackend(getEnv("HISTORY_BACKEND", ""), cfg.MongoURI)

	log.Info().Str("history_backend", cfg.HistoryBackend).Msg("✅ Config loaded")
	return cfg
}

// resolveHistoryBackend falls back to mongo when a URI is configured and to
// none otherwise. Unknown values disable history.
func resolveHistoryBackend(value, mongoURI string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case HistoryMongo:
		return HistoryMongo
	case HistoryPostgres, "postgresql", "gorm":
		return HistoryPostgres
	case HistoryMemory:
		return HistoryMemory
	case HistoryNone, "off", "disabled":
		return HistoryNone
	case "":
		if mongoURI != "" {
			return HistoryMongo
		}
		return HistoryNone
	default:
		log.Warn().Str("value", value).Msg("⚠️  Unknown HISTORY_BACKEND, version history disabled")
		return HistoryNone
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Warn().Str("key", key).Str("value", v).Msg("⚠️  Invalid duration, using default")
		return fallback
	}
	return d
}
