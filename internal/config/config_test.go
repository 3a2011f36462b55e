package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

var envKeys = []string{
	"FEED_PATH", "SETTINGS_PATH", "DATABASE_PATH", "LOG_LEVEL", "LOG_FILE", "LISTEN_ADDR",
	"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "NVD_API_KEY", "WEBSITE_TEMPLATE", "WEBSITE_PATH",
}

func TestLoad(t *testing.T) {
	defaults := Config{
		FeedPath:     "./feed.xml",
		SettingsPath: "./config.json",
		DatabasePath: "./data/feed.db",
		LogLevel:     "info",
		ListenAddr:   ":3000",
		WebsitePath:  "./index.html",
	}

	tests := []struct {
		name    string
		env     map[string]string
		want    func() *Config
		wantErr bool
	}{
		{
			name: "defaults applied",
			env:  map[string]string{},
			want: func() *Config { c := defaults; return &c },
		},
		{
			name: "all values set",
			env: map[string]string{
				"FEED_PATH":          "/srv/feed.xml",
				"SETTINGS_PATH":      "/srv/config.yaml",
				"DATABASE_PATH":      "/tmp/feed.db",
				"LOG_LEVEL":          "debug",
				"LOG_FILE":           "/var/log/feed.log",
				"LISTEN_ADDR":        "127.0.0.1:8080",
				"TELEGRAM_BOT_TOKEN": "tok",
				"TELEGRAM_CHAT_ID":   "-100123",
				"NVD_API_KEY":        "key",
				"WEBSITE_TEMPLATE":   "site.tmpl",
				"WEBSITE_PATH":       "/srv/index.html",
			},
			want: func() *Config {
				return &Config{
					FeedPath:        "/srv/feed.xml",
					SettingsPath:    "/srv/config.yaml",
					DatabasePath:    "/tmp/feed.db",
					LogLevel:        "debug",
					LogFile:         "/var/log/feed.log",
					ListenAddr:      "127.0.0.1:8080",
					TelegramToken:   "tok",
					TelegramChatID:  -100123,
					NVDAPIKey:       "key",
					WebsiteTemplate: "site.tmpl",
					WebsitePath:     "/srv/index.html",
				}
			},
		},
		{
			name:    "token without chat",
			env:     map[string]string{"TELEGRAM_BOT_TOKEN": "tok"},
			wantErr: true,
		},
		{
			name:    "chat without token",
			env:     map[string]string{"TELEGRAM_CHAT_ID": "1"},
			wantErr: true,
		},
		{
			name: "invalid chat id",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tok",
				"TELEGRAM_CHAT_ID":   "abc",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range envKeys {
				t.Setenv(key, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want(), got); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNotificationsEnabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{name: "unset", cfg: Config{}, want: false},
		{name: "token and chat", cfg: Config{TelegramToken: "t", TelegramChatID: 5}, want: true},
		{name: "token only", cfg: Config{TelegramToken: "t"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.cfg.NotificationsEnabled()); diff != "" {
				t.Errorf("NotificationsEnabled() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
