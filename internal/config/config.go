package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	BotToken string `env:"BOT_TOKEN,required"`

	// Membership gate: the broadcast channel and the discussion group a
	// user must have joined, plus the public invite links shown in the
	// join prompt.
	ChannelID   int64  `env:"CHANNEL_ID,required"`
	GroupID     int64  `env:"GROUP_ID,required"`
	ChannelLink string `env:"CHANNEL_LINK,required"`
	GroupLink   string `env:"GROUP_LINK,required"`

	DownloadDir     string        `env:"DOWNLOAD_DIR"`
	DownloadTimeout time.Duration `env:"DOWNLOAD_TIMEOUT" envDefault:"10m"`
	Workers         int           `env:"WORKERS" envDefault:"3"`
	CookiesFile     string        `env:"COOKIES_FILE"`

	HTTPPort int `env:"PORT" envDefault:"8080"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	PostgresDSN string `env:"POSTGRES_DSN"`
}

// Load reads config.env if present (never overriding real environment
// variables) and parses the process environment into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load("config.env")

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if cfg.DownloadDir == "" {
		cfg.DownloadDir = filepath.Join(os.TempDir(), "media_grab_bot")
	}
	if err := os.MkdirAll(cfg.DownloadDir, 0o755); err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 3
	}
	return cfg, nil
}
