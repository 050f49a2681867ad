package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreBadger   = "badger"

	NotifyAll       = "all"
	NotifyRecipient = "recipient"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Chat     ChatConfig
	Auth     AuthConfig
}

type AppConfig struct {
	Port               string `validate:"required"`
	Environment        string
	LogFilePath        string `validate:"required"`
	ChatLogFilePath    string `validate:"required"`
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	OtelEnabled        bool
	OtelEndpoint       string `validate:"required_if=OtelEnabled true"`
}

type DatabaseConfig struct {
	MessageStore string `validate:"oneof=postgres badger"`
	Connection   string `validate:"required_if=MessageStore postgres"`
	BadgerPath   string `validate:"required_if=MessageStore badger"`
}

type ChatConfig struct {
	AllowedOrigins    []string      `validate:"min=1"`
	Timezone          string        `validate:"required"`
	MaxMessageSize    int64         `validate:"gt=0"`
	SendBufferSize    int           `validate:"gt=0"`
	PongWait          time.Duration `validate:"gt=0"`
	WriteWait         time.Duration `validate:"gt=0"`
	RateLimit         float64       `validate:"gt=0"`
	RateBurst         int           `validate:"gt=0"`
	NotificationScope string        `validate:"oneof=all recipient"`
	DisplayNameTTL    time.Duration `validate:"gt=0"`
}

type AuthConfig struct {
	JwtSecret string `validate:"required"`
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			ChatLogFilePath:    getEnv("CHAT_LOG_FILE_PATH", "logs/chat.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Database: DatabaseConfig{
			MessageStore: getEnv("MESSAGE_STORE", StorePostgres),
			Connection:   getEnv("DB_CONNECTION_STRING", ""),
			BadgerPath:   getEnv("BADGER_PATH", "data/messages"),
		},
		Chat: ChatConfig{
			AllowedOrigins:    getEnvAsList("WS_ALLOWED_ORIGINS", []string{"*"}),
			Timezone:          getEnv("CHAT_TIMEZONE", "Local"),
			MaxMessageSize:    int64(getEnvAsInt("WS_MAX_MESSAGE_SIZE", 4096)),
			SendBufferSize:    getEnvAsInt("WS_SEND_BUFFER", 256),
			PongWait:          getEnvAsDuration("WS_PONG_WAIT", 60*time.Second),
			WriteWait:         getEnvAsDuration("WS_WRITE_WAIT", 10*time.Second),
			RateLimit:         getEnvAsFloat("CHAT_RATE_LIMIT", 5),
			RateBurst:         getEnvAsInt("CHAT_RATE_BURST", 10),
			NotificationScope: getEnv("NOTIFICATION_SCOPE", NotifyAll),
			DisplayNameTTL:    getEnvAsDuration("DISPLAY_NAME_TTL", time.Hour),
		},
		Auth: AuthConfig{
			JwtSecret: getEnv("JWT_SECRET", ""),
		},
	}
}

// Validate checks the loaded values before anything is wired.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := c.Chat.Location(); err != nil {
		return fmt.Errorf("invalid configuration: CHAT_TIMEZONE: %w", err)
	}
	return nil
}

// Location resolves the timezone used for formatted message times.
func (c ChatConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// PingPeriod must stay below PongWait so a healthy peer never times out.
func (c ChatConfig) PingPeriod() time.Duration {
	return (c.PongWait * 9) / 10
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

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
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

func getEnvAsList(key string, fallback []string) []string {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}

	var values []string
	for _, part := range strings.Split(strValue, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	if len(values) == 0 {
		return fallback
	}
	return values
}
