package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_CONNECTION_STRING", "postgres://localhost/chat")

	cfg := Load()

	assert.Equal(t, "3000", cfg.App.Port)
	assert.Equal(t, StorePostgres, cfg.Database.MessageStore)
	assert.Equal(t, []string{"*"}, cfg.Chat.AllowedOrigins)
	assert.Equal(t, 60*time.Second, cfg.Chat.PongWait)
	assert.Equal(t, 54*time.Second, cfg.Chat.PingPeriod())
	assert.Equal(t, NotifyAll, cfg.Chat.NotificationScope)
	assert.Empty(t, cfg.App.NatsURL)
	assert.Empty(t, cfg.App.RedisURL)
	assert.False(t, cfg.App.OtelEnabled)
	assert.Equal(t, "localhost:4318", cfg.App.OtelEndpoint)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("MESSAGE_STORE", "badger")
	t.Setenv("BADGER_PATH", "/tmp/chat")
	t.Setenv("WS_ALLOWED_ORIGINS", " http://a.test , ,http://b.test")
	t.Setenv("WS_PONG_WAIT", "30s")
	t.Setenv("CHAT_RATE_LIMIT", "2.5")
	t.Setenv("CHAT_RATE_BURST", "not-a-number")
	t.Setenv("NOTIFICATION_SCOPE", "recipient")
	t.Setenv("CHAT_TIMEZONE", "UTC")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "jaeger:4318")

	cfg := Load()

	assert.Equal(t, StoreBadger, cfg.Database.MessageStore)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Chat.AllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.Chat.PongWait)
	assert.Equal(t, 2.5, cfg.Chat.RateLimit)
	assert.Equal(t, 10, cfg.Chat.RateBurst)
	assert.Equal(t, NotifyRecipient, cfg.Chat.NotificationScope)
	assert.True(t, cfg.App.OtelEnabled)
	assert.Equal(t, "jaeger:4318", cfg.App.OtelEndpoint)

	loc, err := cfg.Chat.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App: AppConfig{Port: "3000", LogFilePath: "app.log", ChatLogFilePath: "chat.log"},
			Database: DatabaseConfig{
				MessageStore: StoreBadger,
				BadgerPath:   "data",
			},
			Chat: ChatConfig{
				AllowedOrigins:    []string{"*"},
				Timezone:          "UTC",
				MaxMessageSize:    1024,
				SendBufferSize:    16,
				PongWait:          time.Second,
				WriteWait:         time.Second,
				RateLimit:         1,
				RateBurst:         1,
				NotificationScope: NotifyAll,
				DisplayNameTTL:    time.Minute,
			},
			Auth: AuthConfig{JwtSecret: "secret"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing secret", mutate: func(c *Config) { c.Auth.JwtSecret = "" }, wantErr: true},
		{name: "unknown store", mutate: func(c *Config) { c.Database.MessageStore = "mysql" }, wantErr: true},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Database.MessageStore = StorePostgres }, wantErr: true},
		{name: "unknown scope", mutate: func(c *Config) { c.Chat.NotificationScope = "friends" }, wantErr: true},
		{name: "bad timezone", mutate: func(c *Config) { c.Chat.Timezone = "Mars/Olympus" }, wantErr: true},
		{name: "no origins", mutate: func(c *Config) { c.Chat.AllowedOrigins = nil }, wantErr: true},
		{name: "tracing without endpoint", mutate: func(c *Config) { c.App.OtelEnabled = true }, wantErr: true},
		{name: "tracing with endpoint", mutate: func(c *Config) {
			c.App.OtelEnabled = true
			c.App.OtelEndpoint = "localhost:4318"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
