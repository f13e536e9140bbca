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
	App     AppConfig
	Storage StorageConfig
	Cache   CacheConfig
	Events  EventsConfig
	Canvas  CanvasConfig
	Auth    AuthConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	WSLogFilePath      string
	CorsAllowedOrigins string
	OtelEnabled        bool
	OtelEndpoint       string
}

type StorageConfig struct {
	Driver        string // "postgres", "mongo" or "sqlite"
	Connection    string
	MongoURI      string
	MongoDatabase string
	SQLitePath    string
}

type CacheConfig struct {
	RedisURL    string
	SnapshotTTL time.Duration
}

type EventsConfig struct {
	NatsURL          string
	CanvasSavedTopic string
}

type CanvasConfig struct {
	SessionTTL      time.Duration
	ImportMaxWidth  int
	ImportMaxBytes  int
	ExportViewportH int
	MaxPixels       int
	ReportSchedule  string
}

type AuthConfig struct {
	JWTSecret string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			WSLogFilePath:      getEnv("WS_LOG_FILE_PATH", "canvas_ws.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Storage: StorageConfig{
			Driver:        strings.ToLower(getEnv("STORAGE_DRIVER", "postgres")),
			Connection:    getEnv("DB_CONNECTION_STRING", ""),
			MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			MongoDatabase: getEnv("MONGO_DATABASE", "studyhub"),
			SQLitePath:    getEnv("SQLITE_PATH", "studyhub.db"),
		},
		Cache: CacheConfig{
			RedisURL:    getEnv("REDIS_URL", ""),
			SnapshotTTL: getEnvAsDuration("SNAPSHOT_CACHE_TTL", 10*time.Minute),
		},
		Events: EventsConfig{
			NatsURL:          getEnv("NATS_URL", ""),
			CanvasSavedTopic: getEnv("CANVAS_SAVED_TOPIC", "canvas.saved"),
		},
		Canvas: CanvasConfig{
			SessionTTL:      getEnvAsDuration("SESSION_TTL", time.Hour),
			ImportMaxWidth:  getEnvAsInt("IMPORT_MAX_WIDTH", 1000),
			ImportMaxBytes:  getEnvAsInt("IMPORT_MAX_BYTES", 50*1024*1024),
			ExportViewportH: getEnvAsInt("EXPORT_VIEWPORT_HEIGHT", 800),
			MaxPixels:       getEnvAsInt("RASTER_MAX_PIXELS", 40_000_000),
			ReportSchedule:  getEnv("SESSION_REPORT_SCHEDULE", "@every 15m"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
