package config

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	LotsBackendSQLite   = "sqlite"
	LotsBackendPostgres = "postgres"
)

type Config struct {
	Port                          string        `mapstructure:"PORT"`
	DatabasePath                  string        `mapstructure:"DATABASE_PATH"`
	LotsBackend                   string        `mapstructure:"LOTS_BACKEND"`
	PostgresURL                   string        `mapstructure:"POSTGRES_URL"`
	WebhookURL                    string        `mapstructure:"WEBHOOK_URL"`
	WebhookTimeout                time.Duration `mapstructure:"WEBHOOK_TIMEOUT"`
	LotsTimeout                   time.Duration `mapstructure:"LOTS_TIMEOUT"`
	MessageClearDelay             time.Duration `mapstructure:"MESSAGE_CLEAR_DELAY"`
	SessionIdleTTL                time.Duration `mapstructure:"SESSION_IDLE_TTL"`
	DiscordBotToken               string        `mapstructure:"DISCORD_BOT_TOKEN"`
	DiscordNotificationsChannelID string        `mapstructure:"DISCORD_NOTIFICATIONS_CHANNEL_ID"`
	RedisAddr                     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword                 string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB                       int           `mapstructure:"REDIS_DB"`
	RateRPS                       float64       `mapstructure:"RATE_RPS"`
	RateBurst                     int           `mapstructure:"RATE_BURST"`
	EnableCORS                    bool          `mapstructure:"ENABLE_CORS"`
	LogLevel                      string        `mapstructure:"LOG_LEVEL"`
}

func LoadConfig() *Config {
	v := viper.New()

	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_PATH", "cafe.db")
	v.SetDefault("LOTS_BACKEND", LotsBackendSQLite)
	v.SetDefault("WEBHOOK_TIMEOUT", 10*time.Second)
	v.SetDefault("LOTS_TIMEOUT", 5*time.Second)
	v.SetDefault("MESSAGE_CLEAR_DELAY", 5*time.Second)
	v.SetDefault("SESSION_IDLE_TTL", 30*time.Minute)
	v.SetDefault("RATE_RPS", 2.0)
	v.SetDefault("RATE_BURST", 10)
	v.SetDefault("LOG_LEVEL", "info")

	v.BindEnv("POSTGRES_URL")
	v.BindEnv("WEBHOOK_URL")
	v.BindEnv("DISCORD_BOT_TOKEN")
	v.BindEnv("DISCORD_NOTIFICATIONS_CHANNEL_ID")
	v.BindEnv("REDIS_ADDR")
	v.BindEnv("REDIS_PASSWORD")
	v.BindEnv("REDIS_DB")
	v.BindEnv("ENABLE_CORS")

	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		logrus.Fatalf("Unable to decode into struct, %v", err)
	}

	return &config
}
