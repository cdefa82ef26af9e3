package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config holds the server settings read from the environment.
type Config struct {
	Port        string
	StoreDriver string
	DatabaseURL string

	MongoURI      string
	MongoDatabase string

	StoreTimeout      time.Duration
	HeartbeatInterval time.Duration
	OriginPatterns    []string

	LogLevel string
	LogDir   string

	FinishedSessionTTL   time.Duration
	FinishedSessionCache int
}

// Load reads configuration from the environment, after applying a .env file in
// the working directory if one exists. Variables already set take precedence.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port:                 getEnv("PORT", "8080"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		MongoURI:             os.Getenv("MONGODB_URI"),
		MongoDatabase:        getEnv("MONGODB_DATABASE", "shooting_gallery"),
		StoreTimeout:         getEnvDuration("STORE_TIMEOUT", 5*time.Second),
		HeartbeatInterval:    getEnvDuration("HEARTBEAT_INTERVAL", 30*time.Second),
		OriginPatterns:       getEnvList("WS_ORIGIN_PATTERNS", []string{"*"}),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogDir:               os.Getenv("LOG_DIR"),
		FinishedSessionTTL:   getEnvDuration("FINISHED_SESSION_TTL", time.Hour),
		FinishedSessionCache: getEnvInt("FINISHED_SESSION_CACHE", 1024),
	}

	defaultDriver := DriverMemory
	if cfg.DatabaseURL != "" {
		defaultDriver = DriverPostgres
	}
	cfg.StoreDriver = strings.ToLower(getEnv("STORE_DRIVER", defaultDriver))
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
