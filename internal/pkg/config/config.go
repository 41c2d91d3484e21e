package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`
	MaxLogVerbosity string `env:"MAX_LOG_VERBOSITY" envDefault:"info"` // ceiling for events shipped to webhooks
	LogPrefix       string `env:"LOG_PREFIX" envDefault:"hookwatch"`
	WebhookName     string `env:"WEBHOOK_NAME" envDefault:"hookwatch"`
	ServiceName     string `env:"SERVICE_NAME" envDefault:"hookwatch"`

	NormalWebhookURL string        `env:"NORMAL_WEBHOOK_URL"`
	ErrorWebhookURL  string        `env:"ERROR_WEBHOOK_URL"`
	WebhookRate      time.Duration `env:"WEBHOOK_RATE" envDefault:"400ms"` // one request per interval
	WebhookBurst     int           `env:"WEBHOOK_BURST" envDefault:"5"`

	FailureStore string `env:"FAILURE_STORE" envDefault:"sqlite"` // sqlite, postgres or redis
	PostgresURL  string `env:"POSTGRES_URL"`
	SQLitePath   string `env:"SQLITE_PATH" envDefault:"hookwatch.db"`
	RedisAddr    string `env:"REDIS_ADDR"`

	LogFlushInterval time.Duration `env:"LOG_FLUSH_INTERVAL" envDefault:"1100ms"`
	StatPushInterval time.Duration `env:"STAT_PUSH_INTERVAL" envDefault:"1h"`

	ServerAddr            string `env:"SERVER_ADDR" envDefault:":8080"`
	InteractionsPublicKey string `env:"INTERACTIONS_PUBLIC_KEY"` // hex Ed25519 key; empty disables verification
	AdminAPIKey           string `env:"ADMIN_API_KEY"`

	BotID              string `env:"BOT_ID"` // empty disables stat pushes
	GuildCount         int    `env:"GUILD_COUNT"`
	ShardCount         int    `env:"SHARD_COUNT" envDefault:"1"`
	TopGGToken         string `env:"TOPGG_TOKEN"`
	DiscordBotsGGToken string `env:"DISCORD_BOTS_GG_TOKEN"`
	BotsOnDiscordToken string `env:"BOTS_ON_DISCORD_TOKEN"`

	RedactFields string `env:"REDACT_FIELDS" envDefault:"password,token,secret,authorization"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Secrets returns the configured credential values that must never appear
// in forwarded log text.
func (c *Config) Secrets() []string {
	var out []string
	for _, s := range []string{
		c.NormalWebhookURL, c.ErrorWebhookURL, c.PostgresURL, c.AdminAPIKey,
		c.TopGGToken, c.DiscordBotsGGToken, c.BotsOnDiscordToken,
	} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
