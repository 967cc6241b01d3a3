// Package config loads process configuration from the environment.
//
// Everything is read exactly once at startup into an immutable Config
// value that gets passed down explicitly; business logic never touches
// the environment itself.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Telegram TelegramConfig
	Database DatabaseConfig
	Feed     FeedConfig
	HTTP     HTTPConfig
	Logging  LoggingConfig
}

type TelegramConfig struct {
	Token string
	// Admin is the username of the single operator allowed to broadcast.
	Admin string
}

type DatabaseConfig struct {
	// URL selects the backend by scheme: postgres:// (or postgresql://)
	// uses the pgx pool, anything else is treated as a sqlite file path.
	URL string
}

type FeedConfig struct {
	// URL of the JSON endpoint returning the latest posts.
	URL string
	// LinkBase is the prefix deep links are built from. If empty it is
	// derived from the feed URL's scheme and host.
	LinkBase string
}

type HTTPConfig struct {
	Port int
}

type LoggingConfig struct {
	Level string
}

const defaultPort = 3000

// Load reads configuration from the environment (a .env file is honored
// if present) and validates it. Missing required values are an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Telegram: TelegramConfig{
			Token: os.Getenv("TELEGRAM_BOT_TOKEN"),
			Admin: strings.TrimSpace(os.Getenv("TELEGRAM_BOT_ADMIN")),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Feed: FeedConfig{
			URL:      os.Getenv("FEED_URL"),
			LinkBase: os.Getenv("FEED_LINK_BASE"),
		},
		HTTP: HTTPConfig{
			Port: defaultPort,
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if raw := os.Getenv("PORT"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("PORT must be a number: %w", err)
		}
		cfg.HTTP.Port = p
	}

	if cfg.Feed.LinkBase == "" && cfg.Feed.URL != "" {
		base, err := deriveLinkBase(cfg.Feed.URL)
		if err != nil {
			return nil, fmt.Errorf("FEED_URL is not a valid URL: %w", err)
		}
		cfg.Feed.LinkBase = base
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if c.Telegram.Admin == "" {
		return fmt.Errorf("TELEGRAM_BOT_ADMIN is required")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Feed.URL == "" {
		return fmt.Errorf("FEED_URL is required")
	}
	return nil
}

func deriveLinkBase(feedURL string) (string, error) {
	u, err := url.Parse(feedURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("missing scheme or host in %q", feedURL)
	}
	return u.Scheme + "://" + u.Host, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
