// Package config handles process configuration from environment variables
// and the feed settings file.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the process configuration.
type Config struct {
	FeedPath        string
	SettingsPath    string
	DatabasePath    string
	LogLevel        string
	LogFile         string
	ListenAddr      string
	TelegramToken   string
	TelegramChatID  int64
	NVDAPIKey       string
	WebsiteTemplate string
	WebsitePath     string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		FeedPath:        envOrDefault("FEED_PATH", "./feed.xml"),
		SettingsPath:    envOrDefault("SETTINGS_PATH", "./config.json"),
		DatabasePath:    envOrDefault("DATABASE_PATH", "./data/feed.db"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFile:         os.Getenv("LOG_FILE"),
		ListenAddr:      envOrDefault("LISTEN_ADDR", ":3000"),
		TelegramToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		NVDAPIKey:       os.Getenv("NVD_API_KEY"),
		WebsiteTemplate: os.Getenv("WEBSITE_TEMPLATE"),
		WebsitePath:     envOrDefault("WEBSITE_PATH", "./index.html"),
	}

	rawChat := os.Getenv("TELEGRAM_CHAT_ID")
	if rawChat != "" {
		id, err := strconv.ParseInt(rawChat, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", rawChat, err)
		}
		cfg.TelegramChatID = id
	}
	if (cfg.TelegramToken == "") != (rawChat == "") {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}

	return cfg, nil
}

// NotificationsEnabled reports whether new items should be announced.
func (c *Config) NotificationsEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
